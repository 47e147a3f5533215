package services

import (
	"context"
	"errors"

	"storefront_server/database"
	"storefront_server/lib"
	"storefront_server/structs"
	"storefront_server/structs/tables"

	"github.com/MonkyMars/gecho"
)

// CartService answers the storefront's "is this item still buyable" check.
type CartService struct {
	logger   *gecho.Logger
	products database.Store[tables.Product]
	variants database.Store[tables.Variant]
	mappings database.Store[tables.VariantMapping]
}

func NewCartService(logger *gecho.Logger, stores *database.Stores) *CartService {
	return &CartService{
		logger:   logger,
		products: stores.Products,
		variants: stores.Variants,
		mappings: stores.Mappings,
	}
}

// ValidateItem checks one cart line. The variant id may be a mapping id or a variant id.
func (cs *CartService) ValidateItem(ctx context.Context, req *structs.CartItemValidationRequest) (*structs.CartItemValidation, error) {
	if req.ProductID.IsEmpty() {
		return nil, lib.NewValidationError("Product ID is required")
	}

	product, err := cs.products.FindByID(ctx, req.ProductID.String())
	if err != nil && !errors.Is(err, lib.ErrNotFound) {
		return nil, err
	}
	if product == nil || !product.Published {
		return nil, lib.NewNotFoundError("Product not found or no longer available")
	}

	mappings, err := listedMappings(ctx, cs.mappings, product)
	if err != nil {
		return nil, err
	}
	totalStock := TotalStock(mappings)

	validation := &structs.CartItemValidation{
		OK: true,
		Product: structs.CartItemProduct{
			ID:         product.ID,
			Title:      product.Title,
			TotalStock: totalStock,
		},
	}

	if req.VariantID.IsEmpty() {
		if totalStock <= 0 {
			return nil, lib.NewConflictError("Product is out of stock")
		}
		validation.Price = lib.EffectivePrice(product.DiscountedPrice, &product.OriginalPrice)
		if !lib.IsValidPrice(validation.Price) {
			return nil, lib.NewValidationError("Invalid product price")
		}
		return validation, nil
	}

	var mapping *tables.VariantMapping
	for i := range mappings {
		if lib.SameIdentity(mappings[i].ID, req.VariantID) || lib.SameIdentity(mappings[i].VariantID, req.VariantID) {
			mapping = &mappings[i]
			break
		}
	}
	if mapping == nil {
		return nil, lib.NewValidationError("Variant not available for this product")
	}
	if !mapping.IsActive {
		return nil, lib.NewConflictError("Variant is no longer available")
	}
	if !IsMappingInStock(*mapping, 1) {
		return nil, lib.NewConflictError("Variant is out of stock")
	}

	variant, err := cs.variants.FindByID(ctx, mapping.VariantID)
	if err != nil {
		if errors.Is(err, lib.ErrNotFound) {
			return nil, lib.NewValidationError("Variant not available for this product")
		}
		return nil, err
	}

	validation.Price = lib.EffectivePrice(mapping.PriceOverride, &variant.Price)
	if !lib.IsValidPrice(validation.Price) {
		return nil, lib.NewValidationError("Invalid variant price")
	}
	validation.Variant = &structs.CartItemVariantOK{
		ID:        mapping.ID,
		VariantID: variant.ID,
		Name:      variant.Name,
		Stock:     MappingStock(*mapping),
		SKU:       variant.SKU,
	}

	cs.logger.Debug("Cart item validated", gecho.Field("product_id", product.ID), gecho.Field("mapping_id", mapping.ID))
	return validation, nil
}
