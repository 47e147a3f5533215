package services

import (
	"context"
	"errors"
	"fmt"

	"storefront_server/database"
	"storefront_server/lib"
	"storefront_server/structs"
	"storefront_server/structs/tables"

	"github.com/MonkyMars/gecho"
)

// CleanupService removes mappings whose product or variant no longer exists.
type CleanupService struct {
	logger    *gecho.Logger
	products  database.Store[tables.Product]
	variants  database.Store[tables.Variant]
	mappings  database.Store[tables.VariantMapping]
	batchSize int
}

func NewCleanupService(logger *gecho.Logger, stores *database.Stores, batchSize int) *CleanupService {
	if batchSize < 1 {
		batchSize = 100
	}
	return &CleanupService{
		logger:    logger,
		products:  stores.Products,
		variants:  stores.Variants,
		mappings:  stores.Mappings,
		batchSize: batchSize,
	}
}

type orphan struct {
	mapping       tables.VariantMapping
	productExists bool
}

// Sweep deletes every orphaned mapping and scans again to confirm none are
// left. Products that lost a mapping get detach and recompute effects.
func (cs *CleanupService) Sweep(ctx context.Context) (*structs.CleanupReport, []Effect, error) {
	scanned, orphans, err := cs.collect(ctx)
	if err != nil {
		return nil, nil, err
	}

	report := &structs.CleanupReport{
		Scanned:   scanned,
		Orphaned:  len(orphans),
		Remaining: []string{},
	}
	if len(orphans) == 0 {
		cs.logger.Debug("Orphan sweep found nothing", gecho.Field("scanned", scanned))
		return report, nil, nil
	}

	var effects []Effect
	var errs []error
	for _, o := range orphans {
		if err := cs.mappings.Delete(ctx, o.mapping.ID); err != nil && !errors.Is(err, lib.ErrNotFound) {
			errs = append(errs, fmt.Errorf("mapping %s: %w", o.mapping.ID, err))
			continue
		}
		report.Deleted++
		OrphanedMappings.Inc()

		if o.productExists {
			report.Detached++
			effects = append(effects,
				DetachMapping(o.mapping.ID),
				RecomputeStock(o.mapping.ProductID),
				InvalidateVariants(o.mapping.ProductID),
			)
		}
	}

	_, remaining, err := cs.collect(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("verification scan: %w", err))
	}
	for _, o := range remaining {
		report.Remaining = append(report.Remaining, o.mapping.ID)
	}
	if len(report.Remaining) > 0 {
		cs.logger.Warn("Orphaned mappings remain after sweep",
			gecho.Field("count", len(report.Remaining)),
			gecho.Field("mapping_ids", report.Remaining),
		)
	}

	cs.logger.Info("Orphan sweep finished",
		gecho.Field("scanned", report.Scanned),
		gecho.Field("deleted", report.Deleted),
		gecho.Field("detached", report.Detached),
	)
	return report, effects, errors.Join(errs...)
}

// collect pages through every mapping before anything is deleted, so offset
// paging never skips records.
func (cs *CleanupService) collect(ctx context.Context) (int, []orphan, error) {
	resolver := newRefResolver(cs.products, cs.variants)
	scanned := 0
	var orphans []orphan

	err := database.BatchProcess(ctx, cs.mappings, database.Filter{}, database.FindOptions{
		Limit: cs.batchSize,
		Sort:  "created_at",
	}, func(batch []tables.VariantMapping) error {
		for _, m := range batch {
			scanned++

			product, err := resolver.Product(ctx, m.ProductID)
			if err != nil {
				return err
			}
			variant, err := resolver.Variant(ctx, m.VariantID)
			if err != nil {
				return err
			}

			if product == nil || variant == nil {
				cs.logger.Debug("Orphaned mapping",
					gecho.Field("mapping_id", m.ID),
					gecho.Field("product_missing", product == nil),
					gecho.Field("variant_missing", variant == nil),
				)
				orphans = append(orphans, orphan{mapping: m.Detached(), productExists: product != nil})
			}
		}
		return nil
	})
	if err != nil {
		return scanned, nil, fmt.Errorf("failed to scan mappings: %w", err)
	}
	return scanned, orphans, nil
}
