package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

var ErrCacheDisabled = errors.New("cache disabled")

// VariantCache stores the storefront variant listing per product.
type VariantCache interface {
	GetVariantOptions(ctx context.Context, productID string) ([]structs.VariantOption, bool)
	SetVariantOptions(ctx context.Context, productID string, options []structs.VariantOption)
	InvalidateVariantOptions(ctx context.Context, productID string)
}

// CacheService provides Redis caching functionality with connection pooling and retry logic
type CacheService struct {
	logger *gecho.Logger
	config *structs.Config
	client *redis.Client
}

func NewCacheService(logger *gecho.Logger, cfg *structs.Config) *CacheService {
	cs := &CacheService{
		logger: logger,
		config: cfg,
	}
	if cfg.Cache.Enabled {
		cs.client = getRedisClient(cfg.Cache)
	}
	return cs
}

// getRedisClient returns a singleton Redis client with proper connection pooling
func getRedisClient(cfg *structs.CacheConfig) *redis.Client {
	redisOnce.Do(func() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,

			// Connection pool settings
			PoolSize:        cfg.PoolSize,
			MinIdleConns:    cfg.MinIdleConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			PoolTimeout:     cfg.PoolTimeout,
			ConnMaxIdleTime: cfg.IdleTimeout,

			// Timeouts
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,

			// Retry settings
			MaxRetries:      cfg.MaxRetries,
			MinRetryBackoff: cfg.MinRetryBackoff,
			MaxRetryBackoff: cfg.MaxRetryBackoff,
		})
	})
	return redisClient
}

func (cs *CacheService) Enabled() bool {
	return cs != nil && cs.client != nil
}

// Close closes the Redis connection pool
func (cs *CacheService) Close() error {
	if cs.client != nil {
		return cs.client.Close()
	}
	return nil
}

// withRetry executes a Redis operation with exponential backoff retry logic
func (cs *CacheService) withRetry(ctx context.Context, operation func() error, maxRetries int) error {
	if !cs.Enabled() {
		return ErrCacheDisabled
	}

	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		// Don't retry on the last attempt
		if attempt == maxRetries {
			break
		}

		// Only retry on network/connection errors, not on logical errors like key not found
		if !isRetryableCacheError(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffWithJitter(attempt)):
		}
	}

	return fmt.Errorf("redis operation failed after %d retries: %w", maxRetries, lastErr)
}

// backoffWithJitter returns 100ms doubled per attempt, capped at 2s, with ±50% jitter.
func backoffWithJitter(attempt int) time.Duration {
	maxBackoff := 2000 // max 2000ms = 2s
	base := 100        // 100ms base

	backoff := min(base*(1<<attempt), maxBackoff)

	jitterBytes := make([]byte, 4)
	if _, err := rand.Read(jitterBytes); err != nil {
		return time.Duration(backoff) * time.Millisecond
	}
	jitter := int(uint32(jitterBytes[0])<<24 | uint32(jitterBytes[1])<<16 | uint32(jitterBytes[2])<<8 | uint32(jitterBytes[3]))
	jitter = jitter % (backoff/2 + 1)

	return time.Duration(backoff/2+jitter) * time.Millisecond
}

// isRetryableCacheError determines if an error is worth retrying
func isRetryableCacheError(err error) bool {
	if err == nil {
		return false
	}

	// Don't retry on nil results (key not found)
	if errors.Is(err, redis.Nil) {
		return false
	}

	errStr := err.Error()
	retryableErrors := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"broken pipe",
		"no such host",
		"network is unreachable",
	}

	for _, retryableErr := range retryableErrors {
		if strings.Contains(errStr, retryableErr) {
			return true
		}
	}

	return false
}

// Set sets a key with TTL and automatic retry logic
func (cs *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return cs.withRetry(ctx, func() error {
		return cs.client.Set(ctx, key, value, ttl).Err()
	}, 3)
}

// Get retrieves a key, returning "" for a missing key
func (cs *CacheService) Get(ctx context.Context, key string) (string, error) {
	var result string

	err := cs.withRetry(ctx, func() error {
		val, err := cs.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			result = ""
			return nil
		}
		if err != nil {
			return err
		}
		result = val
		return nil
	}, 3)

	if err != nil {
		return "", err
	}
	return result, nil
}

func (cs *CacheService) Delete(ctx context.Context, keys ...string) error {
	return cs.withRetry(ctx, func() error {
		return cs.client.Del(ctx, keys...).Err()
	}, 3)
}

// IncrementRateLimit atomically increments a rate limit counter
func (cs *CacheService) IncrementRateLimit(ctx context.Context, ip, endpoint string, ttl time.Duration) (int, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", ip, endpoint)

	var result int64
	err := cs.withRetry(ctx, func() error {
		val, err := cs.client.Incr(ctx, key).Result()
		if err != nil {
			return err
		}
		result = val

		// Set expiration only on first increment
		if val == 1 {
			return cs.client.Expire(ctx, key, ttl).Err()
		}

		return nil
	}, 3)

	return int(result), err
}

// Ping tests the Redis connection
func (cs *CacheService) Ping(ctx context.Context) error {
	return cs.withRetry(ctx, func() error {
		return cs.client.Ping(ctx).Err()
	}, 1)
}

// GetConnectionStats returns Redis connection pool statistics
func (cs *CacheService) GetConnectionStats() map[string]any {
	if !cs.Enabled() {
		return map[string]any{"enabled": false}
	}
	stats := cs.client.PoolStats()

	return map[string]any{
		"enabled":     true,
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}

// ============================================================================
// Variant Listing Cache
// ============================================================================

func variantOptionsKey(productID string) string {
	return fmt.Sprintf("variants:product:%s", productID)
}

func (cs *CacheService) GetVariantOptions(ctx context.Context, productID string) ([]structs.VariantOption, bool) {
	options, err := getJSON[[]structs.VariantOption](ctx, cs, variantOptionsKey(productID))
	if err != nil {
		if !errors.Is(err, ErrCacheDisabled) {
			cs.logger.Warn("Failed to read cached variant list", gecho.Field("product_id", productID), gecho.Field("error", err))
		}
		return nil, false
	}
	if options == nil {
		return nil, false
	}
	return *options, true
}

func (cs *CacheService) SetVariantOptions(ctx context.Context, productID string, options []structs.VariantOption) {
	if err := setJSON(ctx, cs, variantOptionsKey(productID), options, cs.getVariantListTTL()); err != nil && !errors.Is(err, ErrCacheDisabled) {
		cs.logger.Warn("Failed to cache variant list", gecho.Field("product_id", productID), gecho.Field("error", err))
	}
}

func (cs *CacheService) InvalidateVariantOptions(ctx context.Context, productID string) {
	if err := cs.Delete(ctx, variantOptionsKey(productID)); err != nil && !errors.Is(err, ErrCacheDisabled) {
		cs.logger.Warn("Failed to invalidate variant list", gecho.Field("product_id", productID), gecho.Field("error", err))
		return
	}
	cs.logger.Debug("Variant list invalidated", gecho.Field("product_id", productID))
}

// DeletePattern removes all keys matching a pattern using SCAN
func (cs *CacheService) DeletePattern(ctx context.Context, pattern string) error {
	return cs.withRetry(ctx, func() error {
		var cursor uint64

		for {
			keys, nextCursor, err := cs.client.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			if len(keys) > 0 {
				if err := cs.client.Del(ctx, keys...).Err(); err != nil {
					return fmt.Errorf("delete failed: %w", err)
				}
			}

			cursor = nextCursor
			if cursor == 0 {
				break
			}
		}

		return nil
	}, 3)
}

// ClearVariantCaches drops every cached variant listing.
func (cs *CacheService) ClearVariantCaches(ctx context.Context) error {
	return cs.DeletePattern(ctx, "variants:product:*")
}

func (cs *CacheService) ClearAll(ctx context.Context) error {
	return cs.withRetry(ctx, func() error {
		return cs.client.FlushDB(ctx).Err()
	}, 3)
}

// ============================================================================
// Helper Methods
// ============================================================================

func (cs *CacheService) getVariantListTTL() time.Duration {
	if cs.config.Cache.VariantListTTL > 0 {
		return cs.config.Cache.VariantListTTL
	}
	return 5 * time.Minute // fallback default
}

func setJSON[T any](ctx context.Context, cs *CacheService, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return cs.Set(ctx, key, data, ttl)
}

func getJSON[T any](ctx context.Context, cs *CacheService, key string) (*T, error) {
	val, err := cs.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if val == "" {
		return nil, nil // not found in cache
	}

	var result T
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, err
	}

	return &result, nil
}
