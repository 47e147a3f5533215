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
	"github.com/shopspring/decimal"
)

// MappingService owns the lifecycle of product variant mappings. Every write
// returns the effects the caller dispatches once the write has succeeded.
type MappingService struct {
	logger   *gecho.Logger
	products database.Store[tables.Product]
	variants database.Store[tables.Variant]
	mappings database.Store[tables.VariantMapping]
}

func NewMappingService(logger *gecho.Logger, stores *database.Stores) *MappingService {
	return &MappingService{
		logger:   logger,
		products: stores.Products,
		variants: stores.Variants,
		mappings: stores.Mappings,
	}
}

func (ms *MappingService) Create(ctx context.Context, req *structs.MappingRequest) (*tables.VariantMapping, []Effect, error) {
	if req.Product.IsEmpty() || req.Variant.IsEmpty() {
		return nil, nil, lib.NewValidationError("Product and variant are required")
	}
	if err := validateMappingValues(req.Quantity, req.PriceOverride); err != nil {
		return nil, nil, err
	}

	resolver := newRefResolver(ms.products, ms.variants)
	product, err := resolver.Product(ctx, req.Product)
	if err != nil {
		return nil, nil, err
	}
	if product == nil {
		return nil, nil, lib.NewNotFoundError(fmt.Sprintf("Product %s not found", req.Product))
	}
	variant, err := resolver.Variant(ctx, req.Variant)
	if err != nil {
		return nil, nil, err
	}
	if variant == nil {
		return nil, nil, lib.NewNotFoundError(fmt.Sprintf("Variant %s not found", req.Variant))
	}

	duplicate, err := ms.findPair(ctx, product.ID, variant.ID)
	if err != nil {
		return nil, nil, err
	}
	if duplicate != nil {
		return nil, nil, duplicateMappingError(product, variant)
	}

	quantity := 0
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := time.Now().UTC()
	mapping := &tables.VariantMapping{
		ID:            uuid.NewString(),
		ProductID:     product.ID,
		VariantID:     variant.ID,
		Quantity:      &quantity,
		PriceOverride: req.PriceOverride,
		IsDefault:     req.IsDefault,
		IsActive:      isActive,
		DisplayName:   displayName(product, variant),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := ms.mappings.Create(ctx, mapping)
	if err != nil {
		// lost a race against a concurrent create of the same pair
		if errors.Is(err, lib.ErrConflict) {
			return nil, nil, duplicateMappingError(product, variant)
		}
		return nil, nil, fmt.Errorf("failed to create mapping: %w", err)
	}

	ms.logger.Debug("Variant mapping created",
		gecho.Field("mapping_id", created.ID),
		gecho.Field("product_id", product.ID),
		gecho.Field("variant_id", variant.ID),
	)

	created.Product = product
	created.Variant = variant
	effects := []Effect{
		LinkMapping(product.ID, created.ID),
		RecomputeStock(product.ID),
		InvalidateVariants(product.ID),
	}
	return created, effects, nil
}

func (ms *MappingService) Update(ctx context.Context, id string, patch *structs.MappingPatch) (*tables.VariantMapping, []Effect, error) {
	existing, err := ms.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if patch.Product != nil && !lib.SameIdentity(*patch.Product, existing.ProductID) {
		return nil, nil, lib.NewConflictError("The product of a variant mapping cannot be changed, create a new mapping instead")
	}
	if patch.Variant != nil && !lib.SameIdentity(*patch.Variant, existing.VariantID) {
		return nil, nil, lib.NewConflictError("The variant of a variant mapping cannot be changed, create a new mapping instead")
	}
	if err := validateMappingValues(patch.Quantity, patch.PriceOverride); err != nil {
		return nil, nil, err
	}

	changes := map[string]any{
		"version":    existing.Version + 1,
		"updated_at": time.Now().UTC(),
	}
	if patch.Quantity != nil {
		changes["quantity"] = *patch.Quantity
	}
	if patch.PriceOverride != nil {
		changes["price_override"] = *patch.PriceOverride
	}
	if patch.IsDefault != nil {
		changes["is_default"] = *patch.IsDefault
	}
	if patch.IsActive != nil {
		changes["is_active"] = *patch.IsActive
	}

	if existing.DisplayName == "" {
		resolver := newRefResolver(ms.products, ms.variants)
		if err := resolver.Populate(ctx, existing, false); err != nil {
			ms.logger.Warn("Could not derive display name", gecho.Field("mapping_id", existing.ID), gecho.Field("error", err))
		} else if existing.DisplayName != "" {
			changes["display_name"] = existing.DisplayName
		}
	}

	n, err := ms.mappings.UpdateWhere(ctx, database.And(
		database.Equals("id", existing.ID),
		database.Equals("version", existing.Version),
	), changes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update mapping: %w", err)
	}
	if n == 0 {
		return nil, nil, lib.NewConflictError("The variant mapping was changed by someone else, reload and try again")
	}

	updated, err := ms.find(ctx, existing.ID)
	if err != nil {
		return nil, nil, err
	}

	ms.logger.Debug("Variant mapping updated", gecho.Field("mapping_id", updated.ID), gecho.Field("version", updated.Version))
	return updated, []Effect{RecomputeStock(updated.ProductID), InvalidateVariants(updated.ProductID)}, nil
}

func (ms *MappingService) Delete(ctx context.Context, id string) ([]Effect, error) {
	existing, err := ms.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := ms.mappings.Delete(ctx, existing.ID); err != nil {
		if errors.Is(err, lib.ErrNotFound) {
			return nil, lib.NewNotFoundError("Variant mapping not found")
		}
		return nil, fmt.Errorf("failed to delete mapping: %w", err)
	}

	ms.logger.Debug("Variant mapping deleted", gecho.Field("mapping_id", existing.ID), gecho.Field("product_id", existing.ProductID))
	return []Effect{
		DetachMapping(existing.ID),
		RecomputeStock(existing.ProductID),
		InvalidateVariants(existing.ProductID),
	}, nil
}

func (ms *MappingService) Get(ctx context.Context, id string, depth int) (*tables.VariantMapping, error) {
	mapping, err := ms.find(ctx, id)
	if err != nil {
		return nil, err
	}

	resolver := newRefResolver(ms.products, ms.variants)
	if err := resolver.Populate(ctx, mapping, depth > 0); err != nil {
		return nil, err
	}
	return mapping, nil
}

// List returns the mappings of a product, or all mappings when productID is empty.
func (ms *MappingService) List(ctx context.Context, productID string, opts database.FindOptions) (*database.FindResult[tables.VariantMapping], error) {
	var filter database.Filter
	if id := lib.NormalizeID(productID); id != "" {
		filter = database.Equals("product_id", id)
	}
	if opts.Sort == "" {
		opts.Sort = "created_at"
	}

	result, err := ms.mappings.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}

	resolver := newRefResolver(ms.products, ms.variants)
	for i := range result.Docs {
		if opts.Depth == 0 && result.Docs[i].DisplayName != "" {
			continue
		}
		if err := resolver.Populate(ctx, &result.Docs[i], opts.Depth > 0); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (ms *MappingService) find(ctx context.Context, id string) (*tables.VariantMapping, error) {
	mapping, err := ms.mappings.FindByID(ctx, lib.NormalizeID(id))
	if err != nil {
		if errors.Is(err, lib.ErrNotFound) {
			return nil, lib.NewNotFoundError("Variant mapping not found")
		}
		return nil, err
	}
	return mapping, nil
}

// findPair returns the mapping for (productID, variantID), comparing canonical ids.
func (ms *MappingService) findPair(ctx context.Context, productID, variantID string) (*tables.VariantMapping, error) {
	result, err := ms.mappings.Find(ctx, database.Equals("product_id", productID), database.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate mapping: %w", err)
	}
	for i := range result.Docs {
		if lib.SameIdentity(result.Docs[i].VariantID, variantID) {
			return &result.Docs[i], nil
		}
	}
	return nil, nil
}

func duplicateMappingError(product *tables.Product, variant *tables.Variant) error {
	return lib.NewConflictError(fmt.Sprintf("%s already has variant %s", product.Title, variant.Name))
}

func validateMappingValues(quantity *int, priceOverride *decimal.Decimal) error {
	if quantity != nil && *quantity < 0 {
		return lib.NewValidationError("Quantity must be 0 or more")
	}
	if priceOverride != nil && priceOverride.IsNegative() {
		return lib.NewValidationError("Price override must not be negative")
	}
	return nil
}
