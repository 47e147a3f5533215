package structs

import (
	"storefront_server/lib"
	"storefront_server/structs/tables"
)

// CheckoutForm is the form-encoded checkout submission.
type CheckoutForm struct {
	Name      string `mapstructure:"name" validate:"required,max=200"`
	Email     string `mapstructure:"email" validate:"required,max=320"`
	Phone     string `mapstructure:"phone" validate:"required,max=50"`
	Address   string `mapstructure:"address" validate:"required,max=500"`
	Note      string `mapstructure:"note" validate:"omitempty,max=2000"`
	CartItems string `mapstructure:"cartItems" validate:"required"`
}

// CartLine is one entry of the cartItems JSON array.
type CartLine struct {
	ID       lib.Identifier   `json:"id"`
	Product  lib.Identifier   `json:"product"` // accepted in place of id
	Quantity int              `json:"quantity"`
	Variant  *CartLineVariant `json:"variant,omitempty"`
}

// ProductRef returns the product id of the line, preferring id over product.
func (l CartLine) ProductRef() lib.Identifier {
	if !l.ID.IsEmpty() {
		return l.ID
	}
	return l.Product
}

type CartLineVariant struct {
	ID   lib.Identifier `json:"id"`
	Name string         `json:"name"`
	SKU  string         `json:"sku,omitempty"`
}

type OrderStatusRequest struct {
	Status tables.OrderStatus `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}
