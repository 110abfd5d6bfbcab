package event

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/erp/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

// Dispatcher delivers events to in-process handlers.
// A handler subscribed without event types receives every event.
type Dispatcher struct {
	mu       sync.RWMutex
	byType   map[string][]shared.EventHandler
	wildcard []shared.EventHandler
	logger   *zap.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		byType: make(map[string][]shared.EventHandler),
		logger: logger,
	}
}

// Subscribe registers a handler. Without explicit types the handler's own EventTypes are used.
func (d *Dispatcher) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}

	d.mu.Lock()
	if len(eventTypes) == 0 {
		d.wildcard = append(d.wildcard, handler)
	}
	for _, t := range eventTypes {
		d.byType[t] = append(d.byType[t], handler)
	}
	d.mu.Unlock()

	d.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler from every subscription
func (d *Dispatcher) Unsubscribe(handler shared.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	same := func(h shared.EventHandler) bool { return h == handler }
	d.wildcard = slices.DeleteFunc(d.wildcard, same)
	for t, handlers := range d.byType {
		if handlers = slices.DeleteFunc(handlers, same); len(handlers) == 0 {
			delete(d.byType, t)
		} else {
			d.byType[t] = handlers
		}
	}
}

// handlersFor returns a snapshot: typed handlers first, then wildcard handlers
func (d *Dispatcher) handlersFor(eventType string) []shared.EventHandler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Concat(d.byType[eventType], d.wildcard)
}

// Deliver runs every handler of the event. All handlers run even when one fails;
// the failures are returned joined.
func (d *Dispatcher) Deliver(ctx context.Context, event shared.DomainEvent) error {
	var errs []error
	for _, handler := range d.handlersFor(event.EventType()) {
		if err := d.dispatchToHandler(ctx, handler, event); err != nil {
			d.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// dispatchToHandler turns a handler panic into an error
func (d *Dispatcher) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ Sink = (*Dispatcher)(nil)
