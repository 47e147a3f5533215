package services

import (
	"context"
	"errors"

	"storefront_server/database"
	"storefront_server/lib"
	"storefront_server/structs/tables"
)

// refResolver loads the product and variant a mapping points at, remembering
// every answer (including "missing") for its own lifetime.
type refResolver struct {
	products database.Store[tables.Product]
	variants database.Store[tables.Variant]

	productCache map[string]*tables.Product
	variantCache map[string]*tables.Variant
}

func newRefResolver(products database.Store[tables.Product], variants database.Store[tables.Variant]) *refResolver {
	return &refResolver{
		products:     products,
		variants:     variants,
		productCache: make(map[string]*tables.Product),
		variantCache: make(map[string]*tables.Variant),
	}
}

// Product returns nil without an error when the product does not exist.
func (r *refResolver) Product(ctx context.Context, id any) (*tables.Product, error) {
	return resolveRef(ctx, r.products, r.productCache, id)
}

// Variant returns nil without an error when the variant does not exist.
func (r *refResolver) Variant(ctx context.Context, id any) (*tables.Variant, error) {
	return resolveRef(ctx, r.variants, r.variantCache, id)
}

// Populate attaches product and variant to m and backfills its display name.
func (r *refResolver) Populate(ctx context.Context, m *tables.VariantMapping, attach bool) error {
	product, err := r.Product(ctx, m.ProductID)
	if err != nil {
		return err
	}
	variant, err := r.Variant(ctx, m.VariantID)
	if err != nil {
		return err
	}

	if m.DisplayName == "" && product != nil && variant != nil {
		m.DisplayName = displayName(product, variant)
	}
	if attach {
		m.Product = product
		m.Variant = variant
	}
	return nil
}

func resolveRef[T any](ctx context.Context, store database.Store[T], cache map[string]*T, ref any) (*T, error) {
	id := lib.NormalizeID(ref)
	if id == "" {
		return nil, nil
	}
	if cached, ok := cache[id]; ok {
		return cached, nil
	}

	record, err := store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, lib.ErrNotFound) {
			cache[id] = nil
			return nil, nil
		}
		return nil, err
	}
	cache[id] = record
	return record, nil
}

func displayName(product *tables.Product, variant *tables.Variant) string {
	return product.Title + " - " + variant.Name
}

// listedMappings loads the mappings named in the product's variant_mappings
// list. Mappings that point at the product without being listed do not count.
func listedMappings(ctx context.Context, store database.Store[tables.VariantMapping], product *tables.Product, filters ...database.Filter) ([]tables.VariantMapping, error) {
	ids := lib.NormalizeIDs(product.VariantMappings)
	if len(ids) == 0 {
		return nil, nil
	}

	filter := database.In("id", ids)
	if len(filters) > 0 {
		filter = database.And(append([]database.Filter{filter}, filters...)...)
	}
	result, err := store.Find(ctx, filter, database.FindOptions{Sort: "created_at"})
	if err != nil {
		return nil, err
	}
	return result.Docs, nil
}
