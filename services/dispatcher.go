package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/MonkyMars/gecho"
	"github.com/asaskevich/EventBus"
)

type EffectKind string

const (
	EffectLinkMapping        EffectKind = "mapping:link"
	EffectDetachMapping      EffectKind = "mapping:detach"
	EffectRecomputeStock     EffectKind = "stock:recompute"
	EffectInvalidateVariants EffectKind = "variants:invalidate"
)

// Effect is a follow-up action returned by a write. It runs only after the write succeeded.
type Effect struct {
	Kind      EffectKind
	ProductID string
	MappingID string
}

func LinkMapping(productID, mappingID string) Effect {
	return Effect{Kind: EffectLinkMapping, ProductID: productID, MappingID: mappingID}
}

func DetachMapping(mappingID string) Effect {
	return Effect{Kind: EffectDetachMapping, MappingID: mappingID}
}

func RecomputeStock(productID string) Effect {
	return Effect{Kind: EffectRecomputeStock, ProductID: productID}
}

func InvalidateVariants(productID string) Effect {
	return Effect{Kind: EffectInvalidateVariants, ProductID: productID}
}

type EffectHandler func(ctx context.Context, effect Effect) error

// Dispatcher runs effects in two modes. Handlers registered with Handle run in
// the dispatching goroutine, in order. Handlers registered with HandleAsync go
// through the event bus and run on their own goroutine with a context that
// outlives the request.
type Dispatcher struct {
	logger *gecho.Logger
	bus    EventBus.Bus

	mu       sync.RWMutex
	handlers map[EffectKind]EffectHandler
}

func NewDispatcher(logger *gecho.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   logger,
		bus:      EventBus.New(),
		handlers: make(map[EffectKind]EffectHandler),
	}
}

// Handle registers fn to run synchronously for kind. Errors returned by fn are logged.
func (d *Dispatcher) Handle(kind EffectKind, fn EffectHandler) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.handlers[kind]; ok {
		return fmt.Errorf("effect %s already has a handler", kind)
	}
	if d.bus.HasCallback(string(kind)) {
		return fmt.Errorf("effect %s already has an async handler", kind)
	}
	d.handlers[kind] = fn
	return nil
}

// HandleAsync registers fn to run in the background for kind.
func (d *Dispatcher) HandleAsync(kind EffectKind, fn EffectHandler) error {
	d.mu.RLock()
	_, taken := d.handlers[kind]
	d.mu.RUnlock()
	if taken {
		return fmt.Errorf("effect %s already has a handler", kind)
	}

	return d.bus.SubscribeAsync(string(kind), func(ctx context.Context, effect Effect) {
		defer d.recoverHandler(effect)
		d.run(ctx, fn, effect)
	}, false)
}

// Dispatch runs every effect in order. It never fails the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, effects ...Effect) {
	for _, effect := range effects {
		d.publish(ctx, effect)
	}
}

// Wait blocks until every background handler started so far has returned.
func (d *Dispatcher) Wait() {
	d.bus.WaitAsync()
}

func (d *Dispatcher) publish(ctx context.Context, effect Effect) {
	d.mu.RLock()
	fn, ok := d.handlers[effect.Kind]
	d.mu.RUnlock()
	if ok {
		defer d.recoverHandler(effect)
		d.run(ctx, fn, effect)
		return
	}

	topic := string(effect.Kind)
	if !d.bus.HasCallback(topic) {
		d.logger.Warn("No handler for effect", gecho.Field("kind", topic))
		return
	}
	d.bus.Publish(topic, context.WithoutCancel(ctx), effect)
}

func (d *Dispatcher) run(ctx context.Context, fn EffectHandler, effect Effect) {
	if err := fn(ctx, effect); err != nil {
		d.logger.Error("Effect failed",
			gecho.Field("kind", string(effect.Kind)),
			gecho.Field("product_id", effect.ProductID),
			gecho.Field("mapping_id", effect.MappingID),
			gecho.Field("error", err),
		)
	}
}

func (d *Dispatcher) recoverHandler(effect Effect) {
	if r := recover(); r != nil {
		d.logger.Error("Effect handler panicked",
			gecho.Field("kind", string(effect.Kind)),
			gecho.Field("panic", fmt.Sprint(r)),
		)
	}
}
