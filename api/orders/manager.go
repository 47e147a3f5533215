package orders

import (
	"context"

	"storefront_server/services"
	"storefront_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type OrderRoutesManager struct {
	logger          *gecho.Logger
	cfg             *structs.CheckoutConfig
	checkoutService *services.CheckoutService
	cartService     *services.CartService
	dispatch        func(ctx context.Context, effects ...services.Effect)
}

func NewOrderRoutesManager(
	logger *gecho.Logger,
	cfg *structs.CheckoutConfig,
	checkoutService *services.CheckoutService,
	cartService *services.CartService,
	dispatch func(ctx context.Context, effects ...services.Effect),
) *OrderRoutesManager {
	return &OrderRoutesManager{
		logger:          logger,
		cfg:             cfg,
		checkoutService: checkoutService,
		cartService:     cartService,
		dispatch:        dispatch,
	}
}

func (orm *OrderRoutesManager) RegisterRoutes(r chi.Router) {
	r.Post("/validate-cart-item", orm.ValidateCartItem)
	r.Post("/checkout", orm.Checkout)
}
