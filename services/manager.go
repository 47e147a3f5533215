package services

import (
	"context"
	"errors"
	"fmt"

	"storefront_server/database"
	"storefront_server/structs"

	"github.com/MonkyMars/gecho"
)

type ServiceManager struct {
	Stores              *database.Stores
	CacheService        *CacheService
	HealthService       *HealthService
	NotificationService *NotificationService
	ProductService      *ProductService
	MappingService      *MappingService
	VariantService      *VariantService
	CartService         *CartService
	CheckoutService     *CheckoutService
	OrderService        *OrderService
	CleanupService      *CleanupService
	Scheduler           *Scheduler
	Dispatcher          *Dispatcher
	Jobs                *Jobs

	logger *gecho.Logger
}

// NewServiceManager wires the services onto stores. db is nil when running on the memory store.
func NewServiceManager(logger *gecho.Logger, cfg *structs.Config, db *database.DB, stores *database.Stores) (*ServiceManager, error) {
	cacheService := NewCacheService(logger, cfg)
	notificationService := NewNotificationService(logger, cfg.Email)
	productService := NewProductService(logger, stores.Products, stores.Mappings, cacheService)
	checkoutService := NewCheckoutService(logger, cfg, stores, notificationService)

	sm := &ServiceManager{
		Stores:              stores,
		CacheService:        cacheService,
		HealthService:       NewHealthService(logger, db, cacheService),
		NotificationService: notificationService,
		ProductService:      productService,
		MappingService:      NewMappingService(logger, stores),
		VariantService:      NewVariantService(logger, stores, cacheService, cfg.Stock.VariantLookupTimeout),
		CartService:         NewCartService(logger, stores),
		CheckoutService:     checkoutService,
		OrderService:        NewOrderService(logger, cfg, stores.Orders, checkoutService),
		CleanupService:      NewCleanupService(logger, stores, cfg.Jobs.CleanupBatchSize),
		Scheduler:           NewScheduler(logger, cfg.Stock.RecomputeTimeout),
		Dispatcher:          NewDispatcher(logger),
		Jobs:                NewJobs(logger, cfg.Jobs),
		logger:              logger,
	}

	if err := sm.registerEffects(cfg.Stock); err != nil {
		return nil, err
	}
	if err := sm.Jobs.Add("orphan-cleanup", cfg.Jobs.CleanupSchedule, sm.RunCleanup); err != nil {
		return nil, err
	}
	return sm, nil
}

func (sm *ServiceManager) registerEffects(cfg *structs.StockConfig) error {
	ps := sm.ProductService

	return errors.Join(
		sm.Dispatcher.Handle(EffectLinkMapping, func(ctx context.Context, e Effect) error {
			return ps.AttachMapping(ctx, e.ProductID, e.MappingID)
		}),
		sm.Dispatcher.Handle(EffectDetachMapping, func(ctx context.Context, e Effect) error {
			_, err := ps.DetachMapping(ctx, e.MappingID)
			return err
		}),
		sm.Dispatcher.HandleAsync(EffectRecomputeStock, func(ctx context.Context, e Effect) error {
			productID := e.ProductID
			sm.Scheduler.Schedule(productID, func(ctx context.Context) error {
				return ps.RecomputeStock(ctx, productID)
			}, cfg.RecomputeDelay)
			return nil
		}),
		sm.Dispatcher.HandleAsync(EffectInvalidateVariants, func(ctx context.Context, e Effect) error {
			sm.CacheService.InvalidateVariantOptions(ctx, e.ProductID)
			return nil
		}),
	)
}

// Dispatch runs the effects returned by a successful write.
func (sm *ServiceManager) Dispatch(ctx context.Context, effects ...Effect) {
	sm.Dispatcher.Dispatch(ctx, effects...)
}

// RunCleanup sweeps orphaned mappings and dispatches the resulting effects.
func (sm *ServiceManager) RunCleanup(ctx context.Context) error {
	_, err := sm.SweepOrphans(ctx)
	return err
}

// SweepOrphans is RunCleanup returning the sweep report.
func (sm *ServiceManager) SweepOrphans(ctx context.Context) (*structs.CleanupReport, error) {
	report, effects, err := sm.CleanupService.Sweep(ctx)
	sm.Dispatch(ctx, effects...)
	if err != nil {
		return report, err
	}
	if report.Orphaned > 0 {
		sm.logger.Info("Orphaned mappings removed", gecho.Field("deleted", report.Deleted), gecho.Field("remaining", len(report.Remaining)))
	}
	return report, nil
}

// Shutdown stops the cron jobs, drains background effects and waits for pending recomputes.
func (sm *ServiceManager) Shutdown(ctx context.Context) error {
	jobsErr := sm.Jobs.Stop(ctx)
	effectsErr := sm.waitForEffects(ctx)
	schedErr := sm.Scheduler.Shutdown(ctx)
	cacheErr := sm.CacheService.Close()
	return errors.Join(jobsErr, effectsErr, schedErr, cacheErr)
}

func (sm *ServiceManager) waitForEffects(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		sm.Dispatcher.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background effects still running: %w", ctx.Err())
	}
}
