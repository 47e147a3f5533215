package products

import (
	"storefront_server/services"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type ProductRoutesManager struct {
	logger         *gecho.Logger
	productService *services.ProductService
	variantService *services.VariantService
}

func NewProductRoutesManager(
	logger *gecho.Logger,
	productService *services.ProductService,
	variantService *services.VariantService,
) *ProductRoutesManager {
	return &ProductRoutesManager{
		logger:         logger,
		productService: productService,
		variantService: variantService,
	}
}

func (prm *ProductRoutesManager) RegisterRoutes(r chi.Router) {
	r.Get("/products", prm.FetchPublishedProducts)
	r.Get("/products/{id}", prm.FetchProductByID)
	r.Get("/product-variants/{productId}", prm.FetchVariantOptions)
}
