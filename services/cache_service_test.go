package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront_server/structs"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheService_Disabled(t *testing.T) {
	cs := NewCacheService(testLogger(), testConfig())
	ctx := context.Background()

	assert.False(t, cs.Enabled())
	assert.ErrorIs(t, cs.Set(ctx, "k", "v", time.Minute), ErrCacheDisabled)
	_, err := cs.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheDisabled)
	assert.ErrorIs(t, cs.Ping(ctx), ErrCacheDisabled)
	assert.ErrorIs(t, cs.ClearVariantCaches(ctx), ErrCacheDisabled)
	assert.Equal(t, map[string]any{"enabled": false}, cs.GetConnectionStats())
	assert.NoError(t, cs.Close())

	// the variant cache degrades to a miss
	cs.SetVariantOptions(ctx, "p1", []structs.VariantOption{{ID: "m1"}})
	options, ok := cs.GetVariantOptions(ctx, "p1")
	assert.False(t, ok)
	assert.Nil(t, options)
	cs.InvalidateVariantOptions(ctx, "p1")
}

func TestCacheService_NilIsDisabled(t *testing.T) {
	var cs *CacheService
	assert.False(t, cs.Enabled())
}

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 0; attempt < 8; attempt++ {
		base := min(100*(1<<attempt), 2000)
		got := backoffWithJitter(attempt)
		assert.GreaterOrEqual(t, got, time.Duration(base/2)*time.Millisecond)
		assert.LessOrEqual(t, got, time.Duration(base)*time.Millisecond)
	}
}

func TestIsRetryableCacheError(t *testing.T) {
	assert.False(t, isRetryableCacheError(nil))
	assert.False(t, isRetryableCacheError(redis.Nil))
	assert.True(t, isRetryableCacheError(errors.New("dial tcp: connection refused")))
	assert.True(t, isRetryableCacheError(errors.New("i/o timeout")))
	assert.False(t, isRetryableCacheError(errors.New("WRONGTYPE Operation against a key")))
}

func TestVariantOptionsKey(t *testing.T) {
	require.Equal(t, "variants:product:abc", variantOptionsKey("abc"))
}
