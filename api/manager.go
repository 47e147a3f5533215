package api

import (
	"storefront_server/api/admin"
	"storefront_server/api/debug"
	"storefront_server/api/health"
	"storefront_server/api/mappings"
	"storefront_server/api/middleware"
	"storefront_server/api/orders"
	"storefront_server/api/products"
	"storefront_server/services"
	"storefront_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type routerManager struct {
	productRoutes *products.ProductRoutesManager
	mappingRoutes *mappings.MappingRoutesManager
	orderRoutes   *orders.OrderRoutesManager
	adminRoutes   *admin.AdminRoutesManager
	healthRoutes  *health.HealthRoutesManager
	debugRoutes   *debug.DebugRoutesManager
}

func NewRouterManager(logger *gecho.Logger, cfg *structs.Config, sm *services.ServiceManager, mw *middleware.Middleware) *routerManager {
	return &routerManager{
		productRoutes: products.NewProductRoutesManager(logger, sm.ProductService, sm.VariantService),
		mappingRoutes: mappings.NewMappingRoutesManager(logger, sm.MappingService, sm.Dispatch, mw),
		orderRoutes:   orders.NewOrderRoutesManager(logger, cfg.Checkout, sm.CheckoutService, sm.CartService, sm.Dispatch),
		adminRoutes:   admin.NewAdminRoutesManager(logger, sm.ProductService, sm.VariantService, sm.OrderService, sm.Dispatch, mw),
		healthRoutes:  health.NewHealthRoutesManager(sm.HealthService),
		debugRoutes:   debug.NewDebugRoutesManager(logger, sm.CacheService, sm.SweepOrphans),
	}
}

func (rm *routerManager) RegisterRoutes(r chi.Router) {
	rm.productRoutes.RegisterRoutes(r)
	rm.mappingRoutes.RegisterRoutes(r)
	rm.orderRoutes.RegisterRoutes(r)
	rm.adminRoutes.RegisterRoutes(r)
	rm.healthRoutes.RegisterRoutes(r)
	rm.debugRoutes.RegisterRoutes(r)
}
