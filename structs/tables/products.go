package tables

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	tableName       struct{}         `bun:"table:products,alias:p"`
	ID              string           `bun:"id,pk" json:"id"`
	Title           string           `bun:"title,notnull" json:"title"`
	Slug            string           `bun:"slug,nullzero,unique" json:"slug,omitempty"`
	Description     string           `bun:"description" json:"description,omitempty"`
	OriginalPrice   decimal.Decimal  `bun:"original_price,type:numeric(12,2),notnull" json:"original_price"`
	DiscountedPrice *decimal.Decimal `bun:"discounted_price,type:numeric(12,2)" json:"discounted_price,omitempty"`
	VariantMappings []string         `bun:"variant_mappings,array" json:"variant_mappings"` // ordered mapping ids
	TotalStock      int              `bun:"total_stock,notnull" json:"total_stock"`         // cached sum of active mapping quantities
	Published       bool             `bun:"published,notnull" json:"published"`
	CreatedAt       time.Time        `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time        `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

func (p Product) Identity() any { return p.ID }

type VariantCategory string

const (
	VariantCategorySize     VariantCategory = "size"
	VariantCategoryQuantity VariantCategory = "quantity"
	VariantCategoryColor    VariantCategory = "color"
	VariantCategoryMaterial VariantCategory = "material"
	VariantCategoryOther    VariantCategory = "other"
)

// Variant is a reusable catalog entry, not owned by any product.
type Variant struct {
	tableName   struct{}        `bun:"table:variants,alias:v"`
	ID          string          `bun:"id,pk" json:"id"`
	Name        string          `bun:"name,notnull" json:"name"`
	Description string          `bun:"description" json:"description,omitempty"`
	Price       decimal.Decimal `bun:"price,type:numeric(12,2),notnull" json:"price"`
	SKU         string          `bun:"sku" json:"sku,omitempty"`
	Category    VariantCategory `bun:"category,notnull,default:'other'" json:"category"`
	IsActive    bool            `bun:"is_active,notnull" json:"is_active"`
	CreatedAt   time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time       `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

func (v Variant) Identity() any { return v.ID }

// VariantMapping joins a product and a variant and carries the per-product stock.
type VariantMapping struct {
	tableName     struct{}         `bun:"table:product_variant_mappings,alias:pvm"`
	ID            string           `bun:"id,pk" json:"id"`
	ProductID     string           `bun:"product_id,notnull" json:"product_id"`
	VariantID     string           `bun:"variant_id,notnull" json:"variant_id"`
	Quantity      *int             `bun:"quantity" json:"quantity"`
	PriceOverride *decimal.Decimal `bun:"price_override,type:numeric(12,2)" json:"price_override"`
	IsDefault     bool             `bun:"is_default,notnull" json:"is_default"`
	IsActive      bool             `bun:"is_active,notnull" json:"is_active"`
	DisplayName   string           `bun:"display_name" json:"display_name,omitempty"`
	Version       int              `bun:"version,notnull,default:1" json:"version"` // bumped on every write
	CreatedAt     time.Time        `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time        `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	// Populated on read, never stored
	Product *Product `bun:"-" json:"product,omitempty"`
	Variant *Variant `bun:"-" json:"variant,omitempty"`
}

func (m VariantMapping) Identity() any { return m.ID }

// Detached returns a copy without populated references.
func (m VariantMapping) Detached() VariantMapping {
	m.Product = nil
	m.Variant = nil
	return m
}
