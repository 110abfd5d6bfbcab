package idempotency

import (
	"context"
)

// RecordStore persists idempotency records.
//
// Insert returns shared.ErrAlreadyExists when (scope, key) already exists.
// Update is a compare-and-swap on the version the caller read; a lost swap returns
// shared.ErrConcurrentModification. On success the record's Version is advanced.
type RecordStore interface {
	Insert(ctx context.Context, record *Record) error
	Find(ctx context.Context, scope, key string) (*Record, error)
	Update(ctx context.Context, record *Record) error
}
