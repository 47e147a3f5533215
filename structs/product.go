package structs

import (
	"storefront_server/lib"
	"storefront_server/structs/tables"

	"github.com/shopspring/decimal"
)

type ProductRequest struct {
	Title           string           `json:"title" validate:"required,min=1,max=200"`
	Slug            string           `json:"slug" validate:"omitempty,max=200"`
	Description     string           `json:"description" validate:"omitempty,max=5000"`
	OriginalPrice   decimal.Decimal  `json:"original_price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price"`
	VariantMappings []lib.Identifier `json:"variant_mappings"`
	Published       bool             `json:"published"`
}

type ProductPatch struct {
	Title           *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Slug            *string          `json:"slug" validate:"omitempty,max=200"`
	Description     *string          `json:"description" validate:"omitempty,max=5000"`
	OriginalPrice   *decimal.Decimal `json:"original_price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price"`
	VariantMappings []lib.Identifier `json:"variant_mappings"`
	Published       *bool            `json:"published"`
}

type VariantRequest struct {
	Name        string                 `json:"name" validate:"required,min=1,max=200"`
	Description string                 `json:"description" validate:"omitempty,max=2000"`
	Price       decimal.Decimal        `json:"price"`
	SKU         string                 `json:"sku" validate:"omitempty,max=100"`
	Category    tables.VariantCategory `json:"category" validate:"omitempty,oneof=size quantity color material other"`
	IsActive    *bool                  `json:"is_active"`
}

// MappingRequest creates a product variant mapping.
type MappingRequest struct {
	Product       lib.Identifier   `json:"product"`
	Variant       lib.Identifier   `json:"variant"`
	Quantity      *int             `json:"quantity"`
	PriceOverride *decimal.Decimal `json:"price_override"`
	IsDefault     bool             `json:"is_default"`
	IsActive      *bool            `json:"is_active"`
}

// MappingPatch updates a mapping. Product and variant are immutable and only accepted when unchanged.
type MappingPatch struct {
	Product       *lib.Identifier  `json:"product"`
	Variant       *lib.Identifier  `json:"variant"`
	Quantity      *int             `json:"quantity"`
	PriceOverride *decimal.Decimal `json:"price_override"`
	IsDefault     *bool            `json:"is_default"`
	IsActive      *bool            `json:"is_active"`
}

// VariantOption is one entry of the storefront variant listing.
type VariantOption struct {
	ID               string          `json:"id"` // mapping id
	VariantID        string          `json:"variantId"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	Stock            int             `json:"stock"`
	SKU              string          `json:"sku,omitempty"`
	IsDefault        bool            `json:"isDefault"`
	AvailableForSale bool            `json:"availableForSale"`
	Category         string          `json:"category"`
	Active           bool            `json:"active"`
}

type CartItemValidationRequest struct {
	ProductID lib.Identifier `json:"productId"`
	VariantID lib.Identifier `json:"variantId"`
}

type CartItemValidation struct {
	OK      bool               `json:"ok"`
	Price   decimal.Decimal    `json:"price"`
	Product CartItemProduct    `json:"product"`
	Variant *CartItemVariantOK `json:"variant,omitempty"`
}

type CartItemProduct struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	TotalStock int    `json:"totalStock"`
}

type CartItemVariantOK struct {
	ID        string `json:"id"` // mapping id
	VariantID string `json:"variantId"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	SKU       string `json:"sku,omitempty"`
}

// CleanupReport summarises one orphan sweep.
type CleanupReport struct {
	Scanned   int      `json:"scanned"`
	Orphaned  int      `json:"orphaned"`
	Deleted   int      `json:"deleted"`
	Detached  int      `json:"detached"`
	Remaining []string `json:"remaining"`
}
