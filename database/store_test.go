package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"storefront_server/lib"
	"storefront_server/structs"
	"storefront_server/structs/tables"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

func intPtr(v int) *int { return &v }

func newMappingStore(t *testing.T) *MemoryStore[tables.VariantMapping] {
	t.Helper()
	store := NewMemoryStore[tables.VariantMapping](WithUniqueFields("product_id", "variant_id"))
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	seed := []tables.VariantMapping{
		{ID: "m1", ProductID: "p1", VariantID: "v1", Quantity: intPtr(5), IsActive: true, Version: 1, CreatedAt: base.Add(2 * time.Second)},
		{ID: "m2", ProductID: "p1", VariantID: "v2", Quantity: intPtr(0), IsActive: false, Version: 1, CreatedAt: base.Add(100 * time.Millisecond)},
		{ID: "m3", ProductID: "p2", VariantID: "v1", Quantity: nil, IsActive: true, Version: 1, CreatedAt: base.Add(1120 * time.Millisecond)},
	}
	for i := range seed {
		_, err := store.Create(context.Background(), &seed[i])
		require.NoError(t, err)
	}
	return store
}

func docIDs(docs []tables.VariantMapping) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}

func TestMemoryStore_FindFilters(t *testing.T) {
	ctx := context.Background()
	store := newMappingStore(t)

	res, err := store.Find(ctx, Equals("product_id", "p1"), FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, docIDs(res.Docs))

	res, err = store.Find(ctx, And(Equals("product_id", "p1"), Equals("is_active", true)), FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, docIDs(res.Docs))

	res, err = store.Find(ctx, Or(In("id", []string{"m3"}), Equals("variant_id", "v2")), FindOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m2", "m3"}, docIDs(res.Docs))

	res, err = store.Find(ctx, NotEquals("product_id", "p1"), FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"m3"}, docIDs(res.Docs))

	res, err = store.Find(ctx, Equals("quantity", nil), FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"m3"}, docIDs(res.Docs))

	res, err = store.Find(ctx, In("id", []string{}), FindOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Docs)
}

func TestMemoryStore_SortAndPaginate(t *testing.T) {
	ctx := context.Background()
	store := newMappingStore(t)

	res, err := store.Find(ctx, Filter{}, FindOptions{Sort: "created_at"})
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m3", "m1"}, docIDs(res.Docs))

	res, err = store.Find(ctx, Filter{}, FindOptions{Sort: "-created_at", Limit: 2, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m3"}, docIDs(res.Docs))
	assert.True(t, res.HasNextPage)
	assert.Equal(t, 3, res.TotalDocs)
	assert.Equal(t, 2, res.TotalPages)

	res, err = store.Find(ctx, Filter{}, FindOptions{Sort: "-created_at", Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"m2"}, docIDs(res.Docs))
	assert.False(t, res.HasNextPage)
}

func TestMemoryStore_ContainsOnArrays(t *testing.T) {
	ctx := context.Background()
	products := NewMemoryStore[tables.Product]()
	_, err := products.Create(ctx, &tables.Product{ID: "p1", Title: "Rose", VariantMappings: []string{"m1", "m2"}})
	require.NoError(t, err)
	_, err = products.Create(ctx, &tables.Product{ID: "p2", Title: "Tulip"})
	require.NoError(t, err)

	res, err := products.Find(ctx, Contains("variant_mappings", "m2"), FindOptions{})
	require.NoError(t, err)
	require.Len(t, res.Docs, 1)
	assert.Equal(t, "p1", res.Docs[0].ID)

	updated, err := products.Update(ctx, "p1", map[string]any{"variant_mappings": []string{"m1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, updated.VariantMappings)

	res, err = products.Find(ctx, Contains("variant_mappings", "m2"), FindOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Docs)
}

func TestMemoryStore_CreateConflicts(t *testing.T) {
	ctx := context.Background()
	store := newMappingStore(t)

	_, err := store.Create(ctx, &tables.VariantMapping{ID: "m1", ProductID: "p9", VariantID: "v9"})
	assert.ErrorIs(t, err, lib.ErrConflict)

	_, err = store.Create(ctx, &tables.VariantMapping{ID: "m9", ProductID: "p1", VariantID: "v1"})
	assert.ErrorIs(t, err, lib.ErrConflict)

	_, err = store.Create(ctx, &tables.VariantMapping{ProductID: "p1", VariantID: "v7"})
	assert.ErrorIs(t, err, lib.ErrValidation)
}

func TestMemoryStore_UpdateDeleteAndCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := newMappingStore(t)

	updated, err := store.Update(ctx, "m1", map[string]any{"quantity": 3, "version": 2})
	require.NoError(t, err)
	assert.Equal(t, 3, *updated.Quantity)

	n, err := store.UpdateWhere(ctx, And(Equals("id", "m1"), Equals("version", 1)), map[string]any{"quantity": 0})
	require.NoError(t, err)
	assert.Equal(t, 0, n, "stale version must not match")

	n, err = store.UpdateWhere(ctx, And(Equals("id", "m1"), Equals("version", 2)), map[string]any{"quantity": 1, "version": 3})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.Update(ctx, "missing", map[string]any{"quantity": 1})
	assert.ErrorIs(t, err, lib.ErrNotFound)

	_, err = store.Update(ctx, "m1", map[string]any{"id": "other"})
	assert.ErrorIs(t, err, lib.ErrValidation)

	_, err = store.Update(ctx, "m1", map[string]any{"quantity": "lots"})
	assert.ErrorIs(t, err, lib.ErrValidation)

	require.NoError(t, store.Delete(ctx, "m1"))
	assert.ErrorIs(t, store.Delete(ctx, "m1"), lib.ErrNotFound)
	_, err = store.FindByID(ctx, "m1")
	assert.ErrorIs(t, err, lib.ErrNotFound)
	assert.Equal(t, 2, store.Len())
}

func TestMemoryStore_HonoursContext(t *testing.T) {
	store := newMappingStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Find(ctx, Filter{}, FindOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchProcess(t *testing.T) {
	store := newMappingStore(t)

	var seen []string
	err := BatchProcess[tables.VariantMapping](context.Background(), store, Filter{}, FindOptions{Limit: 2}, func(batch []tables.VariantMapping) error {
		seen = append(seen, docIDs(batch)...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2", "m3"}, seen)
}

func TestFilterSQL(t *testing.T) {
	f := Or(In("id", []string{"m1", "m2"}), And(Equals("product_id", "p1"), Contains("variant_mappings", "m3")))
	sql, args := f.SQL()
	assert.Equal(t, "(? IN (?) OR (? = ? AND ? = ANY(?)))", sql)
	assert.Len(t, args, 6)

	sql, _ = In("id", nil).SQL()
	assert.Equal(t, "FALSE", sql)

	sql, _ = Equals("quantity", nil).SQL()
	assert.Equal(t, "? IS NULL", sql)
}

func TestFilterRendersThroughBun(t *testing.T) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN("postgres://u:p@localhost:5432/db?sslmode=disable")))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	f := And(Equals("product_id", "p1"), Contains("variant_mappings", "m3"))
	where, args := f.SQL()
	rendered := db.NewSelect().Model((*tables.Product)(nil)).Where(where, args...).String()

	assert.Contains(t, rendered, `"product_id" = 'p1'`)
	assert.Contains(t, rendered, `'m3' = ANY("variant_mappings")`)
}

func TestBuildDSN(t *testing.T) {
	dsn := BuildDSN(&structs.DatabaseConfig{User: "shop", Password: "p@ss", Host: "db", Port: 5433, Name: "store", SSLMode: "disable"})
	assert.Equal(t, "postgres://shop:p%40ss@db:5433/store?sslmode=disable", dsn)
}
