package event

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultProcessedTTL is how long a handled event ID is remembered
const DefaultProcessedTTL = 24 * time.Hour

// ProcessedStore remembers which events a consumer already handled
type ProcessedStore interface {
	// MarkProcessed records eventID and reports whether it was new
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
}

// HandlerStats is a snapshot of IdempotentHandler counters
type HandlerStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// IdempotentHandler wraps an EventHandler so redelivered events run once
type IdempotentHandler struct {
	handler shared.EventHandler
	store   ProcessedStore
	ttl     time.Duration
	logger  *zap.Logger

	processed atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// NewIdempotentHandler creates a new idempotent handler wrapper
func NewIdempotentHandler(handler shared.EventHandler, store ProcessedStore, ttl time.Duration, logger *zap.Logger) *IdempotentHandler {
	if ttl <= 0 {
		ttl = DefaultProcessedTTL
	}
	return &IdempotentHandler{
		handler: handler,
		store:   store,
		ttl:     ttl,
		logger:  logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle processes the event unless its ID was already seen
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	eventID := event.EventID().String()

	isNew, err := h.store.MarkProcessed(ctx, eventID, h.ttl)
	if err != nil {
		// A duplicate is preferable to a lost notification
		h.logger.Warn("failed to check processed events, processing anyway",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	} else if !isNew {
		h.duplicate.Add(1)
		h.logger.Debug("duplicate event detected, skipping",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.failed.Add(1)
		return err
	}
	h.processed.Add(1)
	return nil
}

// Stats returns the handler's counters
func (h *IdempotentHandler) Stats() HandlerStats {
	return HandlerStats{
		EventsProcessed: h.processed.Load(),
		EventsDuplicate: h.duplicate.Load(),
		EventsFailed:    h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)

// InMemoryProcessedStore keeps processed event IDs in a map
type InMemoryProcessedStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewInMemoryProcessedStore creates an empty store
func NewInMemoryProcessedStore() *InMemoryProcessedStore {
	return &InMemoryProcessedStore{seen: make(map[string]time.Time), now: time.Now}
}

// MarkProcessed implements ProcessedStore. Expired IDs are swept on write.
func (s *InMemoryProcessedStore) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, expires := range s.seen {
		if !now.Before(expires) {
			delete(s.seen, id)
		}
	}
	if _, ok := s.seen[eventID]; ok {
		return false, nil
	}
	s.seen[eventID] = now.Add(ttl)
	return true, nil
}

// RedisProcessedStore keeps processed event IDs as expiring redis keys
type RedisProcessedStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisProcessedStore creates a store over an existing client
func NewRedisProcessedStore(client *redis.Client, keyPrefix string) *RedisProcessedStore {
	if keyPrefix == "" {
		keyPrefix = "fulfillment:processed:"
	}
	return &RedisProcessedStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed implements ProcessedStore with SETNX
func (s *RedisProcessedStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.keyPrefix+eventID, 1, ttl).Result()
}

var (
	_ ProcessedStore = (*InMemoryProcessedStore)(nil)
	_ ProcessedStore = (*RedisProcessedStore)(nil)
)
