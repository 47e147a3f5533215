package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront_server/database"
	"storefront_server/lib"
	"storefront_server/structs"
	"storefront_server/structs/tables"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

type VariantService struct {
	logger        *gecho.Logger
	products      database.Store[tables.Product]
	variants      database.Store[tables.Variant]
	mappings      database.Store[tables.VariantMapping]
	cache         VariantCache
	lookupTimeout time.Duration
}

func NewVariantService(logger *gecho.Logger, stores *database.Stores, cache VariantCache, lookupTimeout time.Duration) *VariantService {
	return &VariantService{
		logger:        logger,
		products:      stores.Products,
		variants:      stores.Variants,
		mappings:      stores.Mappings,
		cache:         cache,
		lookupTimeout: lookupTimeout,
	}
}

func (vs *VariantService) Create(ctx context.Context, req *structs.VariantRequest) (*tables.Variant, error) {
	if !lib.IsValidPrice(req.Price) {
		return nil, lib.NewValidationError("Price must not be negative")
	}

	category := req.Category
	if category == "" {
		category = tables.VariantCategoryOther
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	sku := req.SKU
	if sku == "" {
		generated, err := lib.GenerateSKU(req.Name, 6)
		if err != nil {
			return nil, fmt.Errorf("failed to generate sku: %w", err)
		}
		sku = generated
	}

	now := time.Now().UTC()
	variant := &tables.Variant{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		SKU:         sku,
		Category:    category,
		IsActive:    isActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := vs.variants.Create(ctx, variant)
	if err != nil {
		return nil, fmt.Errorf("failed to create variant: %w", err)
	}
	return created, nil
}

func (vs *VariantService) Get(ctx context.Context, id string) (*tables.Variant, error) {
	variant, err := vs.variants.FindByID(ctx, lib.NormalizeID(id))
	if err != nil {
		if errors.Is(err, lib.ErrNotFound) {
			return nil, lib.NewNotFoundError("Variant not found")
		}
		return nil, err
	}
	return variant, nil
}

// ListOptions returns the active variants of a product for the storefront.
// Missing products, failures and lookups running past the timeout all give
// an empty list.
func (vs *VariantService) ListOptions(ctx context.Context, productID string) []structs.VariantOption {
	productID = lib.NormalizeID(productID)
	if productID == "" {
		return []structs.VariantOption{}
	}

	if vs.cache != nil {
		if cached, ok := vs.cache.GetVariantOptions(ctx, productID); ok {
			return cached
		}
	}

	if vs.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, vs.lookupTimeout)
		defer cancel()
	}

	options, err := vs.loadOptions(ctx, productID)
	if err != nil {
		switch {
		case errors.Is(err, lib.ErrNotFound):
			vs.logger.Debug("Variant list requested for unknown product", gecho.Field("product_id", productID))
		case errors.Is(err, context.DeadlineExceeded):
			vs.logger.Warn("Variant lookup timed out",
				gecho.Field("product_id", productID),
				gecho.Field("timeout", vs.lookupTimeout.String()),
			)
		default:
			vs.logger.Error("Variant lookup failed", gecho.Field("product_id", productID), gecho.Field("error", err))
		}
		return []structs.VariantOption{}
	}

	if vs.cache != nil {
		vs.cache.SetVariantOptions(ctx, productID, options)
	}
	return options
}

func (vs *VariantService) loadOptions(ctx context.Context, productID string) ([]structs.VariantOption, error) {
	product, err := vs.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	mappings, err := listedMappings(ctx, vs.mappings, product, database.Equals("is_active", true))
	if err != nil {
		return nil, err
	}

	resolver := newRefResolver(vs.products, vs.variants)
	options := make([]structs.VariantOption, 0, len(mappings))
	for _, m := range mappings {
		variant, err := resolver.Variant(ctx, m.VariantID)
		if err != nil {
			return nil, err
		}
		if variant == nil {
			vs.logger.Warn("Mapping points at a missing variant", gecho.Field("mapping_id", m.ID), gecho.Field("variant_id", m.VariantID))
			continue
		}
		options = append(options, variantOption(m, variant))
	}
	return options, nil
}

func variantOption(m tables.VariantMapping, variant *tables.Variant) structs.VariantOption {
	category := string(variant.Category)
	if category == "" {
		category = string(tables.VariantCategoryOther)
	}
	return structs.VariantOption{
		ID:               m.ID,
		VariantID:        variant.ID,
		Name:             variant.Name,
		Price:            lib.EffectivePrice(m.PriceOverride, &variant.Price),
		Stock:            MappingStock(m),
		SKU:              variant.SKU,
		IsDefault:        m.IsDefault,
		AvailableForSale: IsMappingInStock(m, 1),
		Category:         category,
		Active:           m.IsActive,
	}
}
