package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront_server/database"
	"storefront_server/structs"
	"storefront_server/structs/tables"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

var errStoreDown = errors.New("store unavailable")

func testConfig() *structs.Config {
	return &structs.Config{
		Server:   &structs.ServerConfig{Environment: "test"},
		Cache:    &structs.CacheConfig{Enabled: false, VariantListTTL: time.Minute},
		Database: &structs.DatabaseConfig{},
		Store:    &structs.StoreConfig{Driver: "memory"},
		Stock: &structs.StockConfig{
			RecomputeDelay:       10 * time.Millisecond,
			RecomputeTimeout:     time.Second,
			VariantLookupTimeout: time.Second,
			DeductionRetries:     2,
			FallbackConcurrency:  2,
		},
		Jobs:       &structs.JobsConfig{CleanupBatchSize: 2, Timezone: "UTC"},
		Checkout:   &structs.CheckoutConfig{SuccessPath: "/checkout/success", OrderNumberPrefix: "T"},
		Auth:       &structs.AuthConfig{},
		Encryption: &structs.EncryptionConfig{},
		Email:      &structs.EmailConfig{},
		RateLimit:  &structs.RateLimitConfig{},
	}
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pricePtr(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

func seedProduct(t *testing.T, stores *database.Stores, title string, published bool) *tables.Product {
	t.Helper()
	now := time.Now().UTC()
	p, err := stores.Products.Create(context.Background(), &tables.Product{
		ID:              uuid.NewString(),
		Title:           title,
		OriginalPrice:   price("10.00"),
		VariantMappings: []string{},
		Published:       published,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	require.NoError(t, err)
	return p
}

func seedVariant(t *testing.T, stores *database.Stores, name string, p string) *tables.Variant {
	t.Helper()
	now := time.Now().UTC()
	v, err := stores.Variants.Create(context.Background(), &tables.Variant{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     price(p),
		SKU:       "SKU-" + name,
		Category:  tables.VariantCategorySize,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return v
}

// seedMapping stores a mapping and lists it on the product, the state the
// dispatcher leaves behind after a create.
func seedMapping(t *testing.T, stores *database.Stores, product *tables.Product, variant *tables.Variant, quantity int, active bool) *tables.VariantMapping {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	m, err := stores.Mappings.Create(ctx, &tables.VariantMapping{
		ID:          uuid.NewString(),
		ProductID:   product.ID,
		VariantID:   variant.ID,
		Quantity:    qty(quantity),
		IsActive:    active,
		DisplayName: displayName(product, variant),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)

	current, err := stores.Products.FindByID(ctx, product.ID)
	require.NoError(t, err)
	_, err = stores.Products.Update(ctx, product.ID, map[string]any{
		"variant_mappings": append(current.VariantMappings, m.ID),
	})
	require.NoError(t, err)
	return m
}

func mappingQuantity(t *testing.T, stores *database.Stores, id string) int {
	t.Helper()
	m, err := stores.Mappings.FindByID(context.Background(), id)
	require.NoError(t, err)
	return MappingStock(*m)
}

func storedProduct(t *testing.T, stores *database.Stores, id string) *tables.Product {
	t.Helper()
	p, err := stores.Products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

// faultyStore wraps a store and fails selected operations.
type faultyStore[T any] struct {
	database.Store[T]
	findErr        error
	findByIDErr    error
	updateWhereErr error
	// updateWhereMisses makes the first n UpdateWhere calls match nothing
	updateWhereMisses atomic.Int32
	finds             atomic.Int32
	findByIDs         atomic.Int32
}

func (s *faultyStore[T]) Find(ctx context.Context, filter database.Filter, opts database.FindOptions) (*database.FindResult[T], error) {
	s.finds.Add(1)
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.Store.Find(ctx, filter, opts)
}

func (s *faultyStore[T]) FindByID(ctx context.Context, id string) (*T, error) {
	s.findByIDs.Add(1)
	if s.findByIDErr != nil {
		return nil, s.findByIDErr
	}
	return s.Store.FindByID(ctx, id)
}

func (s *faultyStore[T]) UpdateWhere(ctx context.Context, filter database.Filter, changes map[string]any) (int, error) {
	if s.updateWhereErr != nil {
		return 0, s.updateWhereErr
	}
	if s.updateWhereMisses.Load() > 0 {
		s.updateWhereMisses.Add(-1)
		return 0, nil
	}
	return s.Store.UpdateWhere(ctx, filter, changes)
}

// slowStore blocks every Find until the context is done.
type slowStore[T any] struct {
	database.Store[T]
}

func (s *slowStore[T]) Find(ctx context.Context, filter database.Filter, opts database.FindOptions) (*database.FindResult[T], error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// memoryCache is a VariantCache backed by a map.
type memoryCache struct {
	mu          sync.Mutex
	entries     map[string][]structs.VariantOption
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]structs.VariantOption)}
}

func (c *memoryCache) GetVariantOptions(_ context.Context, productID string) ([]structs.VariantOption, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	options, ok := c.entries[productID]
	return options, ok
}

func (c *memoryCache) SetVariantOptions(_ context.Context, productID string, options []structs.VariantOption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[productID] = options
}

func (c *memoryCache) InvalidateVariantOptions(_ context.Context, productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, productID)
	c.invalidated = append(c.invalidated, productID)
}
