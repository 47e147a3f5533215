package database

import (
	"time"

	"storefront_server/structs/tables"

	"github.com/uptrace/bun"
)

// Stores groups the record stores of every collection the services touch.
type Stores struct {
	Products Store[tables.Product]
	Variants Store[tables.Variant]
	Mappings Store[tables.VariantMapping]
	Orders   Store[tables.Order]
}

func NewBunStores(db bun.IDB, timeout time.Duration) *Stores {
	return &Stores{
		Products: NewBunStore[tables.Product](db, timeout),
		Variants: NewBunStore[tables.Variant](db, timeout),
		Mappings: NewBunStore[tables.VariantMapping](db, timeout),
		Orders:   NewBunStore[tables.Order](db, timeout),
	}
}

// NewMemoryStores mirrors the unique indexes created by Migrate.
func NewMemoryStores() *Stores {
	return &Stores{
		Products: NewMemoryStore[tables.Product](WithUniqueFields("slug")),
		Variants: NewMemoryStore[tables.Variant](),
		Mappings: NewMemoryStore[tables.VariantMapping](WithUniqueFields("product_id", "variant_id")),
		Orders:   NewMemoryStore[tables.Order](WithUniqueFields("order_number")),
	}
}
