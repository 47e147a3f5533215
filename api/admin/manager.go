package admin

import (
	"context"

	"storefront_server/api/middleware"
	"storefront_server/services"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type AdminRoutesManager struct {
	logger         *gecho.Logger
	productService *services.ProductService
	variantService *services.VariantService
	orderService   *services.OrderService
	dispatch       func(ctx context.Context, effects ...services.Effect)
	mw             *middleware.Middleware
}

func NewAdminRoutesManager(
	logger *gecho.Logger,
	productService *services.ProductService,
	variantService *services.VariantService,
	orderService *services.OrderService,
	dispatch func(ctx context.Context, effects ...services.Effect),
	mw *middleware.Middleware,
) *AdminRoutesManager {
	return &AdminRoutesManager{
		logger:         logger,
		productService: productService,
		variantService: variantService,
		orderService:   orderService,
		dispatch:       dispatch,
		mw:             mw,
	}
}

func (ar *AdminRoutesManager) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(ar.mw.AdminAuthMiddleware)

		// Catalog management
		r.Get("/admin/products", ar.ListAllProducts)
		r.Post("/products", ar.CreateProduct)
		r.Patch("/products/{id}", ar.UpdateProduct)
		r.Delete("/products/{id}", ar.DeleteProduct)
		r.Post("/products/{id}/recompute-stock", ar.RecomputeProductStock)
		r.Post("/variants", ar.CreateVariant)
		r.Get("/variants/{id}", ar.GetVariant)

		// Order management
		r.Get("/orders", ar.ListOrders)
		r.Get("/orders/{id}", ar.GetOrderDetails)
		r.Patch("/orders/{id}/status", ar.UpdateOrderStatus)
		r.Post("/orders/{id}/cancel", ar.CancelOrder)
	})
}
