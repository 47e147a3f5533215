package mappings

import (
	"context"

	"storefront_server/api/middleware"
	"storefront_server/services"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type MappingRoutesManager struct {
	logger         *gecho.Logger
	mappingService *services.MappingService
	dispatch       func(ctx context.Context, effects ...services.Effect)
	mw             *middleware.Middleware
}

func NewMappingRoutesManager(
	logger *gecho.Logger,
	mappingService *services.MappingService,
	dispatch func(ctx context.Context, effects ...services.Effect),
	mw *middleware.Middleware,
) *MappingRoutesManager {
	return &MappingRoutesManager{
		logger:         logger,
		mappingService: mappingService,
		dispatch:       dispatch,
		mw:             mw,
	}
}

func (mrm *MappingRoutesManager) RegisterRoutes(r chi.Router) {
	r.Route("/product-variant-mappings", func(r chi.Router) {
		r.Get("/", mrm.ListMappings)
		r.Get("/{id}", mrm.GetMapping)

		r.Group(func(r chi.Router) {
			r.Use(mrm.mw.AdminAuthMiddleware)
			r.Post("/", mrm.CreateMapping)
			r.Patch("/{id}", mrm.UpdateMapping)
			r.Delete("/{id}", mrm.DeleteMapping)
		})
	})
}
