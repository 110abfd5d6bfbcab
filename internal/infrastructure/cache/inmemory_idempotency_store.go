package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/fulfillment/internal/domain/idempotency"
	"github.com/erp/fulfillment/internal/domain/shared"
)

// InMemoryRecordStore implements idempotency.RecordStore using an in-memory map.
// This is suitable for single-instance deployments and testing.
// Records are stored encoded so callers never share mutable state with the store.
type InMemoryRecordStore struct {
	mu        sync.Mutex
	entries   map[string][]byte
	retention time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryRecordStore creates a new in-memory record store.
// When retention is positive a background goroutine drops FAILED and expired
// PROCESSING records older than retention. COMPLETED records are kept.
func NewInMemoryRecordStore(retention time.Duration) *InMemoryRecordStore {
	store := &InMemoryRecordStore{
		entries:   make(map[string][]byte),
		retention: retention,
		stopChan:  make(chan struct{}),
	}
	if retention > 0 {
		store.wg.Add(1)
		go store.cleanupLoop()
	}
	return store
}

// Insert stores a new record, shared.ErrAlreadyExists if (scope, key) is taken
func (s *InMemoryRecordStore) Insert(_ context.Context, record *idempotency.Record) error {
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := compositeKey(record.Scope, record.Key)
	if _, exists := s.entries[k]; exists {
		return shared.ErrAlreadyExists
	}
	s.entries[k] = data
	return nil
}

// Find loads a record, shared.ErrNotFound when absent
func (s *InMemoryRecordStore) Find(_ context.Context, scope, key string) (*idempotency.Record, error) {
	s.mu.Lock()
	data, ok := s.entries[compositeKey(scope, key)]
	s.mu.Unlock()

	if !ok {
		return nil, shared.ErrNotFound
	}
	return decodeRecord(data)
}

// Update swaps the record if the stored version equals record.Version
func (s *InMemoryRecordStore) Update(_ context.Context, record *idempotency.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := compositeKey(record.Scope, record.Key)
	data, ok := s.entries[k]
	if !ok {
		return shared.ErrNotFound
	}
	current, err := decodeRecord(data)
	if err != nil {
		return err
	}
	if current.Version != record.Version {
		return shared.ErrConcurrentModification
	}

	record.Version++
	next, err := encodeRecord(record)
	if err != nil {
		record.Version--
		return err
	}
	s.entries[k] = next
	return nil
}

// Len returns the number of stored records
func (s *InMemoryRecordStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine
func (s *InMemoryRecordStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	return nil
}

func (s *InMemoryRecordStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.retention / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now())
		case <-s.stopChan:
			return
		}
	}
}

func (s *InMemoryRecordStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, data := range s.entries {
		r, err := decodeRecord(data)
		if err != nil {
			delete(s.entries, k)
			continue
		}
		if r.Status == idempotency.StatusCompleted {
			continue
		}
		if r.Status == idempotency.StatusProcessing && !r.IsExpired(now) {
			continue
		}
		if now.Sub(r.UpdatedAt) >= s.retention {
			delete(s.entries, k)
		}
	}
}

// Ensure InMemoryRecordStore implements RecordStore
var _ idempotency.RecordStore = (*InMemoryRecordStore)(nil)
