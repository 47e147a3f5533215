package database

import (
	"context"
	"fmt"

	"storefront_server/structs/tables"

	"github.com/uptrace/bun"
)

// Migrate creates the tables and indexes the services rely on. It is safe to run repeatedly.
func Migrate(ctx context.Context, db bun.IDB) error {
	models := []any{
		(*tables.Product)(nil),
		(*tables.Variant)(nil),
		(*tables.VariantMapping)(nil),
		(*tables.Order)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}

	// one mapping per (product, variant)
	if _, err := db.NewCreateIndex().
		Model((*tables.VariantMapping)(nil)).
		Index("pvm_product_variant_uniq").
		Unique().
		IfNotExists().
		Column("product_id", "variant_id").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create mapping unique index: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*tables.Product)(nil)).
		Index("products_variant_mappings_gin").
		IfNotExists().
		Using("GIN").
		Column("variant_mappings").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create variant mappings index: %w", err)
	}

	return nil
}
