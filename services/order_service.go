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
)

type OrderService struct {
	logger   *gecho.Logger
	cfg      *structs.Config
	orders   database.Store[tables.Order]
	checkout *CheckoutService
}

func NewOrderService(logger *gecho.Logger, cfg *structs.Config, orders database.Store[tables.Order], checkout *CheckoutService) *OrderService {
	return &OrderService{
		logger:   logger,
		cfg:      cfg,
		orders:   orders,
		checkout: checkout,
	}
}

func (os *OrderService) Get(ctx context.Context, id string) (*tables.Order, error) {
	order, err := os.orders.FindByID(ctx, lib.NormalizeID(id))
	if err != nil {
		if errors.Is(err, lib.ErrNotFound) {
			return nil, lib.NewNotFoundError("Order not found")
		}
		return nil, err
	}

	os.decrypt(order)
	return order, nil
}

func (os *OrderService) GetByOrderNumber(ctx context.Context, orderNumber string) (*tables.Order, error) {
	result, err := os.orders.Find(ctx, database.Equals("order_number", orderNumber), database.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(result.Docs) == 0 {
		return nil, lib.NewNotFoundError("Order not found")
	}

	order := &result.Docs[0]
	os.decrypt(order)
	return order, nil
}

// List returns orders newest first, optionally filtered by status.
func (os *OrderService) List(ctx context.Context, status tables.OrderStatus, opts database.FindOptions) (*database.FindResult[tables.Order], error) {
	var filter database.Filter
	if status != "" {
		filter = database.Equals("status", string(status))
	}
	if opts.Sort == "" {
		opts.Sort = "-created_at"
	}

	result, err := os.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	for i := range result.Docs {
		os.decrypt(&result.Docs[i])
	}
	return result, nil
}

// UpdateStatus moves an order to next. Cancelling puts the ordered stock back once.
func (os *OrderService) UpdateStatus(ctx context.Context, id string, next tables.OrderStatus) (*tables.Order, []Effect, error) {
	order, err := os.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if !isValidStatusTransition(order.Status, next) {
		return nil, nil, lib.NewConflictError(fmt.Sprintf("invalid status transition from %s to %s", order.Status, next))
	}

	restore := next == tables.OrderStatusCancelled && !order.StockRestored
	changes := map[string]any{
		"status":     string(next),
		"updated_at": time.Now().UTC(),
	}
	if restore {
		changes["stock_restored"] = true
	}

	// the status guard makes concurrent transitions from the same state race for one winner
	n, err := os.orders.UpdateWhere(ctx, database.And(
		database.Equals("id", order.ID),
		database.Equals("status", string(order.Status)),
	), changes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if n == 0 {
		return nil, nil, lib.NewConflictError("The order was changed by someone else, reload and try again")
	}

	os.logger.Info("Order status updated",
		gecho.Field("order_id", order.ID),
		gecho.Field("old_status", order.Status),
		gecho.Field("new_status", next),
	)

	var effects []Effect
	if restore && os.checkout != nil {
		effects, err = os.checkout.RestoreStock(ctx, order)
		if err != nil {
			os.logger.Error("Order cancelled but stock was not fully restored",
				gecho.Field("order_id", order.ID),
				gecho.Field("error", err),
			)
			if _, uerr := os.orders.Update(ctx, order.ID, map[string]any{"stock_restored": false}); uerr != nil {
				os.logger.Error("Failed to reset stock_restored flag", gecho.Field("order_id", order.ID), gecho.Field("error", uerr))
			}
		}
	}

	updated, err := os.Get(ctx, order.ID)
	if err != nil {
		return nil, effects, err
	}
	return updated, effects, nil
}

func isValidStatusTransition(current, next tables.OrderStatus) bool {
	transitions := map[tables.OrderStatus][]tables.OrderStatus{
		tables.OrderStatusPending: {
			tables.OrderStatusProcessing,
			tables.OrderStatusCancelled,
		},
		tables.OrderStatusProcessing: {
			tables.OrderStatusShipped,
			tables.OrderStatusCancelled,
		},
		tables.OrderStatusShipped: {
			tables.OrderStatusDelivered,
		},
		tables.OrderStatusDelivered: {},
		tables.OrderStatusCancelled: {},
	}

	allowed, exists := transitions[current]
	if !exists {
		return false
	}
	return slices.Contains(allowed, next)
}

// decrypt opens sealed customer fields in place. Fields that fail to open keep their stored value.
func (os *OrderService) decrypt(order *tables.Order) {
	key := os.cfg.Encryption.Key
	if key == "" {
		return
	}

	fields := map[string]*string{
		"name":    &order.Name,
		"email":   &order.Email,
		"phone":   &order.Phone,
		"address": &order.Address,
		"note":    &order.Note,
	}
	for name, field := range fields {
		if *field == "" {
			continue
		}
		plain, err := lib.Decrypt(*field, key)
		if err != nil {
			os.logger.Warn("Failed to decrypt order field",
				gecho.Field("order_id", order.ID),
				gecho.Field("field", name),
				gecho.Field("error", err),
			)
			continue
		}
		*field = plain
	}
}
