package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultBufferSize is the queue length of an AsyncNotifier
const DefaultBufferSize = 256

// ErrBufferFull is returned when an event is dropped because the queue is full
var ErrBufferFull = errors.New("notifier buffer is full")

// ErrNotifierClosed is returned by Publish after Close
var ErrNotifierClosed = errors.New("notifier is closed")

// Sink is the transport behind an AsyncNotifier
type Sink interface {
	Deliver(ctx context.Context, event shared.DomainEvent) error
}

// AsyncNotifier queues events in a bounded buffer and hands them to a Sink from
// a single background goroutine. Publish never blocks; a full queue drops the event.
type AsyncNotifier struct {
	sink           Sink
	queue          chan shared.DomainEvent
	logger         *zap.Logger
	deliverTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	delivered atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

// AsyncNotifierOption configures an AsyncNotifier
type AsyncNotifierOption func(*AsyncNotifier)

// WithBufferSize sets the queue length
func WithBufferSize(size int) AsyncNotifierOption {
	return func(n *AsyncNotifier) {
		if size > 0 {
			n.queue = make(chan shared.DomainEvent, size)
		}
	}
}

// WithDeliverTimeout bounds one Sink.Deliver call
func WithDeliverTimeout(d time.Duration) AsyncNotifierOption {
	return func(n *AsyncNotifier) {
		if d > 0 {
			n.deliverTimeout = d
		}
	}
}

// NewAsyncNotifier starts a notifier over sink
func NewAsyncNotifier(sink Sink, logger *zap.Logger, opts ...AsyncNotifierOption) *AsyncNotifier {
	n := &AsyncNotifier{
		sink:           sink,
		queue:          make(chan shared.DomainEvent, DefaultBufferSize),
		logger:         logger,
		deliverTimeout: 10 * time.Second,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	go n.run()
	return n
}

// Publish enqueues the event without waiting for delivery
func (n *AsyncNotifier) Publish(_ context.Context, event shared.DomainEvent) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return ErrNotifierClosed
	}
	select {
	case n.queue <- event:
		return nil
	default:
		n.dropped.Add(1)
		n.logger.Warn("notifier buffer full, dropping event",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
			zap.String("aggregate_id", event.AggregateID().String()),
		)
		return ErrBufferFull
	}
}

// Close stops accepting events and waits until the queue is drained or ctx ends
func (n *AsyncNotifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns delivery counters
func (n *AsyncNotifier) Stats() NotifierStats {
	return NotifierStats{
		Delivered: n.delivered.Load(),
		Dropped:   n.dropped.Load(),
		Failed:    n.failed.Load(),
		Queued:    len(n.queue),
	}
}

// NotifierStats is a snapshot of AsyncNotifier counters
type NotifierStats struct {
	Delivered int64 `json:"delivered"`
	Dropped   int64 `json:"dropped"`
	Failed    int64 `json:"failed"`
	Queued    int   `json:"queued"`
}

func (n *AsyncNotifier) run() {
	defer close(n.done)
	for event := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), n.deliverTimeout)
		err := n.sink.Deliver(ctx, event)
		cancel()
		if err != nil {
			n.failed.Add(1)
			n.logger.Error("failed to deliver event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
			continue
		}
		n.delivered.Add(1)
	}
}
