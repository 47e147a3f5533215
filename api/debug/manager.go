package debug

import (
	"context"

	"storefront_server/config"
	"storefront_server/services"
	"storefront_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type DebugRoutesManager struct {
	logger       *gecho.Logger
	cacheService *services.CacheService
	sweep        func(ctx context.Context) (*structs.CleanupReport, error)
}

func NewDebugRoutesManager(
	logger *gecho.Logger,
	cacheService *services.CacheService,
	sweep func(ctx context.Context) (*structs.CleanupReport, error),
) *DebugRoutesManager {
	return &DebugRoutesManager{
		logger:       logger,
		cacheService: cacheService,
		sweep:        sweep,
	}
}

func (drm *DebugRoutesManager) RegisterRoutes(r chi.Router) {
	// Debug routes - only in non-production environments
	if !config.IsProduction() {
		r.Route("/debug", func(r chi.Router) {
			r.Post("/cache/clear", drm.ClearCache)
			r.Post("/cleanup", drm.RunCleanup)
		})
	}
}
