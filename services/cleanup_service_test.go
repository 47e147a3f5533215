package services

import (
	"context"
	"testing"

	"storefront_server/database"
	"storefront_server/structs/tables"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupSweep(t *testing.T) {
	stores := database.NewMemoryStores()
	kept := seedProduct(t, stores, "Kept", true)
	deleted := seedProduct(t, stores, "Deleted", true)
	variant := seedVariant(t, stores, "Std", "2.00")
	vanishing := seedVariant(t, stores, "Vanishing", "2.00")

	healthy := seedMapping(t, stores, kept, variant, 3, true)
	noVariant := seedMapping(t, stores, kept, vanishing, 4, true)
	noProduct := seedMapping(t, stores, deleted, variant, 5, true)
	for _, extra := range []string{"A", "B", "C"} {
		seedMapping(t, stores, deleted, seedVariant(t, stores, extra, "1.00"), 1, true)
	}

	ctx := context.Background()
	require.NoError(t, stores.Products.Delete(ctx, deleted.ID))
	require.NoError(t, stores.Variants.Delete(ctx, vanishing.ID))

	cs := NewCleanupService(testLogger(), stores, 2)
	report, effects, err := cs.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 6, report.Scanned)
	assert.Equal(t, 5, report.Orphaned)
	assert.Equal(t, 5, report.Deleted)
	assert.Equal(t, 1, report.Detached)
	assert.Empty(t, report.Remaining)
	assert.Equal(t, []Effect{
		DetachMapping(noVariant.ID),
		RecomputeStock(kept.ID),
		InvalidateVariants(kept.ID),
	}, effects)

	_, err = stores.Mappings.FindByID(ctx, healthy.ID)
	assert.NoError(t, err)
	_, err = stores.Mappings.FindByID(ctx, noProduct.ID)
	assert.Error(t, err)
	assert.Equal(t, 1, stores.Mappings.(*database.MemoryStore[tables.VariantMapping]).Len())

	again, effects, err := cs.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Orphaned)
	assert.Empty(t, effects)
}

func TestCleanupSweep_StoreFailure(t *testing.T) {
	stores := database.NewMemoryStores()
	failing := &database.Stores{
		Products: stores.Products,
		Variants: stores.Variants,
		Mappings: &faultyStore[tables.VariantMapping]{Store: stores.Mappings, findErr: errStoreDown},
	}

	_, _, err := NewCleanupService(testLogger(), failing, 10).Sweep(context.Background())
	assert.ErrorIs(t, err, errStoreDown)
}
