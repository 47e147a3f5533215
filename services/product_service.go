package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"storefront_server/database"
	"storefront_server/lib"
	"storefront_server/structs"
	"storefront_server/structs/tables"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stockContextKey struct{}

// withoutStockReconcile marks a product write that must not recompute stock again.
func withoutStockReconcile(ctx context.Context) context.Context {
	return context.WithValue(ctx, stockContextKey{}, true)
}

func stockReconcileSkipped(ctx context.Context) bool {
	skip, _ := ctx.Value(stockContextKey{}).(bool)
	return skip
}

type ProductService struct {
	logger   *gecho.Logger
	products database.Store[tables.Product]
	mappings database.Store[tables.VariantMapping]
	cache    VariantCache
}

// NewProductService builds the service. A nil mapping store leaves stock
// aggregation unavailable and reads fall back to the stored total.
func NewProductService(logger *gecho.Logger, products database.Store[tables.Product], mappings database.Store[tables.VariantMapping], cache VariantCache) *ProductService {
	return &ProductService{
		logger:   logger,
		products: products,
		mappings: mappings,
		cache:    cache,
	}
}

// Get returns a product with read-reconciled stock.
func (ps *ProductService) Get(ctx context.Context, id string) (*tables.Product, error) {
	product, err := ps.products.FindByID(ctx, lib.NormalizeID(id))
	if err != nil {
		if errors.Is(err, lib.ErrNotFound) {
			return nil, lib.NewNotFoundError("Product not found")
		}
		return nil, err
	}

	ps.ReconcileRead(ctx, product)
	return product, nil
}

// GetPublished hides unpublished products behind a not found error.
func (ps *ProductService) GetPublished(ctx context.Context, id string) (*tables.Product, error) {
	product, err := ps.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.Published {
		return nil, lib.NewNotFoundError("Product not found")
	}
	return product, nil
}

func (ps *ProductService) List(ctx context.Context, publishedOnly bool, opts database.FindOptions) (*database.FindResult[tables.Product], error) {
	var filter database.Filter
	if publishedOnly {
		filter = database.Equals("published", true)
	}
	if opts.Sort == "" {
		opts.Sort = "-created_at"
	}

	result, err := ps.products.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	for i := range result.Docs {
		ps.ReconcileRead(ctx, &result.Docs[i])
	}
	return result, nil
}

func (ps *ProductService) Create(ctx context.Context, req *structs.ProductRequest) (*tables.Product, error) {
	if err := validateProductPrices(&req.OriginalPrice, req.DiscountedPrice); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &tables.Product{
		ID:              uuid.NewString(),
		Title:           req.Title,
		Slug:            req.Slug,
		Description:     req.Description,
		OriginalPrice:   req.OriginalPrice,
		DiscountedPrice: req.DiscountedPrice,
		VariantMappings: lib.NormalizeIDs(req.VariantMappings),
		Published:       req.Published,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := ps.products.Create(ctx, product)
	if err != nil {
		if errors.Is(err, lib.ErrConflict) {
			return nil, lib.NewConflictError(fmt.Sprintf("A product with slug %q already exists", req.Slug))
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	ps.reconcileAfterWrite(ctx, created)
	ps.logger.Debug("Product created", gecho.Field("product_id", created.ID))
	return created, nil
}

func (ps *ProductService) Update(ctx context.Context, id string, patch *structs.ProductPatch) (*tables.Product, error) {
	changes := make(map[string]any)
	if patch.Title != nil {
		changes["title"] = *patch.Title
	}
	if patch.Slug != nil {
		changes["slug"] = *patch.Slug
	}
	if patch.Description != nil {
		changes["description"] = *patch.Description
	}
	if patch.OriginalPrice != nil {
		if err := validateProductPrices(patch.OriginalPrice, nil); err != nil {
			return nil, err
		}
		changes["original_price"] = *patch.OriginalPrice
	}
	if patch.DiscountedPrice != nil {
		if err := validateProductPrices(nil, patch.DiscountedPrice); err != nil {
			return nil, err
		}
		changes["discounted_price"] = *patch.DiscountedPrice
	}
	if patch.VariantMappings != nil {
		changes["variant_mappings"] = lib.NormalizeIDs(patch.VariantMappings)
	}
	if patch.Published != nil {
		changes["published"] = *patch.Published
	}

	if len(changes) == 0 {
		return ps.Get(ctx, id)
	}
	return ps.save(ctx, lib.NormalizeID(id), changes)
}

// Delete removes a product. Its mappings are left for the orphan sweep.
func (ps *ProductService) Delete(ctx context.Context, id string) error {
	id = lib.NormalizeID(id)
	if err := ps.products.Delete(ctx, id); err != nil {
		if errors.Is(err, lib.ErrNotFound) {
			return lib.NewNotFoundError("Product not found")
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	ps.invalidate(ctx, id)
	return nil
}

// save persists changes and, unless ctx is marked, reconciles stock afterwards.
func (ps *ProductService) save(ctx context.Context, id string, changes map[string]any) (*tables.Product, error) {
	changes["updated_at"] = time.Now().UTC()

	updated, err := ps.products.Update(ctx, id, changes)
	if err != nil {
		switch {
		case errors.Is(err, lib.ErrNotFound):
			return nil, lib.NewNotFoundError("Product not found")
		case errors.Is(err, lib.ErrConflict):
			return nil, lib.NewConflictError("Product update conflicts with an existing product")
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	ps.reconcileAfterWrite(ctx, updated)
	return updated, nil
}

func (ps *ProductService) reconcileAfterWrite(ctx context.Context, product *tables.Product) {
	if stockReconcileSkipped(ctx) {
		return
	}
	if _, err := ps.ReconcileWrite(ctx, product); err != nil {
		ps.logger.Warn("Stock reconciliation after product write failed",
			gecho.Field("product_id", product.ID),
			gecho.Field("error", err),
		)
	}
}

// ReconcileRead sets TotalStock from the live mappings. When they cannot be
// loaded the stored value is kept.
func (ps *ProductService) ReconcileRead(ctx context.Context, product *tables.Product) {
	if len(product.VariantMappings) == 0 {
		product.TotalStock = 0
		return
	}

	stock, err := ps.calculateStock(ctx, product)
	if err != nil {
		if product.TotalStock == 0 {
			ps.logger.Warn("Stock aggregation unavailable, product shows 0 stock although it has mappings",
				gecho.Field("product_id", product.ID),
				gecho.Field("mappings", len(product.VariantMappings)),
				gecho.Field("error", err),
			)
			return
		}
		ps.logger.Warn("Stock aggregation unavailable, using stored total",
			gecho.Field("product_id", product.ID),
			gecho.Field("stored_stock", product.TotalStock),
			gecho.Field("error", err),
		)
		return
	}

	product.TotalStock = stock
}

// ReconcileWrite recomputes stock and persists it only when it changed.
func (ps *ProductService) ReconcileWrite(ctx context.Context, product *tables.Product) (bool, error) {
	if stockReconcileSkipped(ctx) {
		return false, nil
	}

	stock, err := ps.calculateStock(ctx, product)
	if err != nil {
		return false, err
	}
	if stock == product.TotalStock {
		return false, nil
	}

	previous := product.TotalStock
	updated, err := ps.save(withoutStockReconcile(ctx), product.ID, map[string]any{"total_stock": stock})
	if err != nil {
		return false, err
	}
	*product = *updated

	ps.logger.Debug("Product stock updated",
		gecho.Field("product_id", product.ID),
		gecho.Field("old_stock", previous),
		gecho.Field("new_stock", stock),
	)
	return true, nil
}

// RecomputeStock is the body of the debounced recompute for one product.
func (ps *ProductService) RecomputeStock(ctx context.Context, productID string) error {
	product, err := ps.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, lib.ErrNotFound) {
			ps.logger.Debug("Skipping stock recompute for deleted product", gecho.Field("product_id", productID))
			return nil
		}
		return err
	}

	if _, err := ps.ReconcileWrite(ctx, product); err != nil {
		return err
	}
	ps.invalidate(ctx, product.ID)
	return nil
}

// AttachMapping appends mappingID to the product's mapping list if it is not there yet.
func (ps *ProductService) AttachMapping(ctx context.Context, productID, mappingID string) error {
	product, err := ps.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if lib.ContainsIdentity(product.VariantMappings, mappingID) {
		return nil
	}

	ids := append(slices.Clone(product.VariantMappings), lib.NormalizeID(mappingID))
	_, err = ps.save(withoutStockReconcile(ctx), product.ID, map[string]any{"variant_mappings": ids})
	return err
}

// DetachMapping removes mappingID from every product listing it and
// recomputes their stock right away. It returns how many products changed.
func (ps *ProductService) DetachMapping(ctx context.Context, mappingID string) (int, error) {
	mappingID = lib.NormalizeID(mappingID)
	if mappingID == "" {
		return 0, nil
	}

	result, err := ps.products.Find(ctx, database.Contains("variant_mappings", mappingID), database.FindOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to find products referencing mapping %s: %w", mappingID, err)
	}

	var errs []error
	detached := 0
	for _, product := range result.Docs {
		remaining := make([]string, 0, len(product.VariantMappings))
		for _, id := range product.VariantMappings {
			if !lib.SameIdentity(id, mappingID) {
				remaining = append(remaining, id)
			}
		}

		updated, err := ps.save(withoutStockReconcile(ctx), product.ID, map[string]any{"variant_mappings": remaining})
		if err != nil {
			errs = append(errs, fmt.Errorf("product %s: %w", product.ID, err))
			continue
		}
		detached++

		if _, err := ps.ReconcileWrite(ctx, updated); err != nil {
			errs = append(errs, fmt.Errorf("product %s stock: %w", product.ID, err))
		}
		ps.invalidate(ctx, product.ID)
	}

	return detached, errors.Join(errs...)
}

func (ps *ProductService) calculateStock(ctx context.Context, product *tables.Product) (int, error) {
	mappings, err := ps.productMappings(ctx, product)
	if err != nil {
		return 0, err
	}
	return TotalStock(mappings), nil
}

// productMappings loads the mappings listed on the product. An empty list needs no store.
func (ps *ProductService) productMappings(ctx context.Context, product *tables.Product) ([]tables.VariantMapping, error) {
	if len(product.VariantMappings) == 0 {
		return nil, nil
	}
	if ps.mappings == nil {
		return nil, lib.ErrAggregationUnavailable
	}

	mappings, err := listedMappings(ctx, ps.mappings, product)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lib.ErrAggregationUnavailable, err)
	}
	return mappings, nil
}

func (ps *ProductService) invalidate(ctx context.Context, productID string) {
	if ps.cache != nil {
		ps.cache.InvalidateVariantOptions(ctx, productID)
	}
}

func validateProductPrices(original, discounted *decimal.Decimal) error {
	if original != nil && original.IsNegative() {
		return lib.NewValidationError("Original price must not be negative")
	}
	if discounted != nil && discounted.IsNegative() {
		return lib.NewValidationError("Discounted price must not be negative")
	}
	return nil
}
