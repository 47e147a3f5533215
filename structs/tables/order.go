package tables

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	// Table Name and identifiers
	tableName   struct{} `bun:"table:orders,alias:o"`
	ID          string   `bun:"id,pk" json:"id"`
	OrderNumber string   `bun:"order_number,notnull,unique" json:"order_number"`

	// Customer Data, sealed when an encryption key is configured
	Name    string `bun:"name,notnull" json:"name"`
	Email   string `bun:"email,notnull" json:"email"`
	Phone   string `bun:"phone,notnull" json:"phone"`
	Address string `bun:"address,notnull" json:"address"`
	Note    string `bun:"note" json:"note,omitempty"`

	// Order Data
	CartItems     []CartItem      `bun:"cart_items,type:jsonb,notnull" json:"cart_items"`
	TotalAmount   decimal.Decimal `bun:"total_amount,type:numeric(12,2),notnull" json:"total_amount"`
	Status        OrderStatus     `bun:"status,notnull,default:'pending'" json:"status"`
	StockRestored bool            `bun:"stock_restored,notnull" json:"stock_restored"`
	OrderDate     time.Time       `bun:"order_date,notnull" json:"order_date"`
	CreatedAt     time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time       `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

func (o Order) Identity() any { return o.ID }

// CartItem is a snapshot taken at checkout, it does not follow later catalog changes.
type CartItem struct {
	ProductID       string           `json:"product_id"`
	ProductTitle    string           `json:"product_title"`
	Quantity        int              `json:"quantity"`
	PriceAtPurchase decimal.Decimal  `json:"price_at_purchase"`
	MappingID       string           `json:"mapping_id,omitempty"` // mapping the quantity was deducted from
	Variant         *CartItemVariant `json:"variant,omitempty"`
}

type CartItemVariant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	SKU  string `json:"sku,omitempty"`
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)
