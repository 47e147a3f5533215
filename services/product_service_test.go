package services

import (
	"context"
	"testing"
	"time"

	"storefront_server/database"
	"storefront_server/lib"
	"storefront_server/structs"
	"storefront_server/structs/tables"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProductService(stores *database.Stores, cache VariantCache) *ProductService {
	return NewProductService(testLogger(), stores.Products, stores.Mappings, cache)
}

func TestProductGet_ReconcilesStockOnRead(t *testing.T) {
	stores := database.NewMemoryStores()
	product := seedProduct(t, stores, "Tulips", true)
	small := seedVariant(t, stores, "Small", "5.00")
	large := seedVariant(t, stores, "Large", "9.00")
	hidden := seedVariant(t, stores, "Hidden", "1.00")
	seedMapping(t, stores, product, small, 4, true)
	seedMapping(t, stores, product, large, 6, true)
	seedMapping(t, stores, product, hidden, 50, false)

	ps := newProductService(stores, nil)
	got, err := ps.Get(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.TotalStock)

	// reads do not persist
	assert.Equal(t, 0, storedProduct(t, stores, product.ID).TotalStock)
}

func TestProductGet_EmptyMappingListIsZero(t *testing.T) {
	stores := database.NewMemoryStores()
	product := seedProduct(t, stores, "Roses", true)
	_, err := stores.Products.Update(context.Background(), product.ID, map[string]any{"total_stock": 12})
	require.NoError(t, err)

	got, err := newProductService(stores, nil).Get(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalStock)
}

func TestProductGet_FallsBackToStoredStock(t *testing.T) {
	stores := database.NewMemoryStores()
	product := seedProduct(t, stores, "Lilies", true)
	variant := seedVariant(t, stores, "Bunch", "7.50")
	seedMapping(t, stores, product, variant, 3, true)
	_, err := stores.Products.Update(context.Background(), product.ID, map[string]any{"total_stock": 7})
	require.NoError(t, err)

	t.Run("mapping store failing", func(t *testing.T) {
		failing := &faultyStore[tables.VariantMapping]{Store: stores.Mappings, findErr: errStoreDown}
		ps := NewProductService(testLogger(), stores.Products, failing, nil)

		got, err := ps.Get(context.Background(), product.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, got.TotalStock)
	})

	t.Run("no mapping store", func(t *testing.T) {
		ps := NewProductService(testLogger(), stores.Products, nil, nil)

		got, err := ps.Get(context.Background(), product.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, got.TotalStock)
	})
}

func TestProductGetPublished_HidesDrafts(t *testing.T) {
	stores := database.NewMemoryStores()
	draft := seedProduct(t, stores, "Draft", false)

	_, err := newProductService(stores, nil).GetPublished(context.Background(), draft.ID)
	assert.ErrorIs(t, err, lib.ErrNotFound)
}

func TestProductReconcileWrite_PersistsOnlyChanges(t *testing.T) {
	stores := database.NewMemoryStores()
	product := seedProduct(t, stores, "Peonies", true)
	variant := seedVariant(t, stores, "Single", "3.00")
	seedMapping(t, stores, product, variant, 8, true)

	ps := newProductService(stores, nil)
	current := storedProduct(t, stores, product.ID)

	changed, err := ps.ReconcileWrite(context.Background(), current)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 8, current.TotalStock)
	assert.Equal(t, 8, storedProduct(t, stores, product.ID).TotalStock)

	changed, err = ps.ReconcileWrite(context.Background(), current)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestProductCreate(t *testing.T) {
	stores := database.NewMemoryStores()
	ps := newProductService(stores, nil)
	ctx := context.Background()

	t.Run("normalizes mapping ids", func(t *testing.T) {
		created, err := ps.Create(ctx, &structs.ProductRequest{
			Title:           "Daisies",
			Slug:            "daisies",
			OriginalPrice:   price("12.00"),
			VariantMappings: []lib.Identifier{lib.ParseIdentifier("42"), lib.ParseIdentifier(42), lib.ParseIdentifier("")},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"42"}, created.VariantMappings)
		assert.Equal(t, 0, created.TotalStock)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		_, err := ps.Create(ctx, &structs.ProductRequest{Title: "Other", Slug: "daisies", OriginalPrice: price("1.00")})
		assert.ErrorIs(t, err, lib.ErrConflict)
	})

	t.Run("negative price", func(t *testing.T) {
		_, err := ps.Create(ctx, &structs.ProductRequest{Title: "Bad", OriginalPrice: price("-1.00")})
		assert.ErrorIs(t, err, lib.ErrValidation)
	})

	t.Run("products without slug do not collide", func(t *testing.T) {
		_, err := ps.Create(ctx, &structs.ProductRequest{Title: "A", OriginalPrice: price("1.00")})
		require.NoError(t, err)
		_, err = ps.Create(ctx, &structs.ProductRequest{Title: "B", OriginalPrice: price("1.00")})
		require.NoError(t, err)
	})
}

func TestProductUpdate_ReconcilesAfterMappingListChange(t *testing.T) {
	stores := database.NewMemoryStores()
	product := seedProduct(t, stores, "Orchid", true)
	other := seedProduct(t, stores, "Fern", true)
	variant := seedVariant(t, stores, "Pot", "15.00")
	mapping := seedMapping(t, stores, other, variant, 5, true)

	ps := newProductService(stores, nil)
	updated, err := ps.Update(context.Background(), product.ID, &structs.ProductPatch{
		VariantMappings: []lib.Identifier{lib.ParseIdentifier(mapping.ID)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{mapping.ID}, updated.VariantMappings)
	assert.Equal(t, 5, updated.TotalStock)
	assert.Equal(t, 5, storedProduct(t, stores, product.ID).TotalStock)
}

func TestProductAttachMapping_NoDuplicates(t *testing.T) {
	stores := database.NewMemoryStores()
	product := seedProduct(t, stores, "Cactus", true)
	ps := newProductService(stores, nil)
	ctx := context.Background()

	require.NoError(t, ps.AttachMapping(ctx, product.ID, "m-1"))
	require.NoError(t, ps.AttachMapping(ctx, product.ID, "m-1"))
	require.NoError(t, ps.AttachMapping(ctx, product.ID, "m-2"))

	assert.Equal(t, []string{"m-1", "m-2"}, storedProduct(t, stores, product.ID).VariantMappings)
}

func TestProductDetachMapping_RemovesFromEveryProduct(t *testing.T) {
	stores := database.NewMemoryStores()
	first := seedProduct(t, stores, "First", true)
	second := seedProduct(t, stores, "Second", true)
	variant := seedVariant(t, stores, "Box", "4.00")
	keep := seedVariant(t, stores, "Bag", "2.00")
	mapping := seedMapping(t, stores, first, variant, 9, true)
	seedMapping(t, stores, first, keep, 2, true)

	ctx := context.Background()
	_, err := stores.Products.Update(ctx, second.ID, map[string]any{"variant_mappings": []string{mapping.ID}})
	require.NoError(t, err)
	require.NoError(t, stores.Mappings.Delete(ctx, mapping.ID))

	cache := newMemoryCache()
	n, err := newProductService(stores, cache).DetachMapping(ctx, mapping.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := storedProduct(t, stores, first.ID)
	assert.NotContains(t, got.VariantMappings, mapping.ID)
	assert.Len(t, got.VariantMappings, 1)
	assert.Equal(t, 2, got.TotalStock)
	assert.Empty(t, storedProduct(t, stores, second.ID).VariantMappings)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, cache.invalidated)
}

func TestProductRecomputeStock(t *testing.T) {
	stores := database.NewMemoryStores()
	product := seedProduct(t, stores, "Ivy", true)
	variant := seedVariant(t, stores, "Hanging", "8.00")
	seedMapping(t, stores, product, variant, 11, true)

	cache := newMemoryCache()
	ps := newProductService(stores, cache)

	require.NoError(t, ps.RecomputeStock(context.Background(), product.ID))
	assert.Equal(t, 11, storedProduct(t, stores, product.ID).TotalStock)
	assert.Equal(t, []string{product.ID}, cache.invalidated)

	// deleted products are skipped
	assert.NoError(t, ps.RecomputeStock(context.Background(), "missing"))
}

func TestProductDelete(t *testing.T) {
	stores := database.NewMemoryStores()
	product := seedProduct(t, stores, "Moss", true)
	ps := newProductService(stores, nil)

	require.NoError(t, ps.Delete(context.Background(), product.ID))
	assert.ErrorIs(t, ps.Delete(context.Background(), product.ID), lib.ErrNotFound)
}

func TestProductStock_CountsOnlyListedMappings(t *testing.T) {
	stores := database.NewMemoryStores()
	product := seedProduct(t, stores, "Anemone", true)
	listed := seedVariant(t, stores, "Blue", "6.00")
	stray := seedVariant(t, stores, "White", "6.00")
	seedMapping(t, stores, product, listed, 5, true)

	ctx := context.Background()
	// points at the product but is not in its list
	_, err := stores.Mappings.Create(ctx, &tables.VariantMapping{
		ID:        "unlisted",
		ProductID: product.ID,
		VariantID: stray.ID,
		Quantity:  qty(7),
		IsActive:  true,
		Version:   1,
	})
	require.NoError(t, err)

	ps := newProductService(stores, nil)
	got, err := ps.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.TotalStock)

	_, err = ps.ReconcileWrite(ctx, storedProduct(t, stores, product.ID))
	require.NoError(t, err)
	assert.Equal(t, 5, storedProduct(t, stores, product.ID).TotalStock)

	vs := NewVariantService(testLogger(), stores, nil, time.Second)
	assert.Len(t, vs.ListOptions(ctx, product.ID), 1)

	t.Run("emptied list stores and reads 0", func(t *testing.T) {
		updated, err := ps.Update(ctx, product.ID, &structs.ProductPatch{VariantMappings: []lib.Identifier{}})
		require.NoError(t, err)
		assert.Empty(t, updated.VariantMappings)
		assert.Equal(t, 0, updated.TotalStock)
		assert.Equal(t, 0, storedProduct(t, stores, product.ID).TotalStock)

		got, err := ps.Get(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.TotalStock)
	})
}
