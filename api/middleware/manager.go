package middleware

import (
	"context"
	"time"

	"storefront_server/structs"

	"github.com/MonkyMars/gecho"
)

// RateCounter counts requests per client and endpoint inside a window.
type RateCounter interface {
	Enabled() bool
	IncrementRateLimit(ctx context.Context, ip, endpoint string, ttl time.Duration) (int, error)
}

type Middleware struct {
	cfg          *structs.Config
	logger       *gecho.Logger
	cacheService RateCounter
}

func NewMiddleware(cfg *structs.Config, logger *gecho.Logger, cacheService RateCounter) *Middleware {
	return &Middleware{
		cfg:          cfg,
		logger:       logger,
		cacheService: cacheService,
	}
}
