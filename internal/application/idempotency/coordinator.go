// Package idempotency runs mutating operations at most once per caller-supplied key.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/erp/fulfillment/internal/domain/idempotency"
	"github.com/erp/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultTTL bounds how long a PROCESSING attempt holds its key
const DefaultTTL = 24 * time.Hour

// Decision tells the caller what to do after Acquire
type Decision string

const (
	// DecisionProceed means the caller holds the key and must execute, then Complete or Fail
	DecisionProceed Decision = "PROCEED"
	// DecisionReplay means the key already completed; return the stored envelope
	DecisionReplay Decision = "REPLAY"
)

// Acquisition is the result of Acquire. A PROCEED acquisition is the lease
// passed back to Complete or Fail.
type Acquisition struct {
	Decision Decision
	Envelope *idempotency.ResponseEnvelope
	Scope    idempotency.Scope
	Key      string

	// record version written by this attempt
	version int
}

// Coordinator guards operations with idempotency records
type Coordinator struct {
	store  idempotency.RecordStore
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithTTL overrides DefaultTTL
func WithTTL(ttl time.Duration) Option {
	return func(c *Coordinator) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// NewCoordinator creates a Coordinator over a record store
func NewCoordinator(store idempotency.RecordStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fingerprint hashes a canonical request body
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Acquire claims (scope, key) for a new attempt or returns the stored response
func (c *Coordinator) Acquire(ctx context.Context, scope idempotency.Scope, key, fingerprint string) (*Acquisition, error) {
	now := c.now()
	record, err := idempotency.NewProcessingRecord(scope, key, fingerprint, c.ttl, now)
	if err != nil {
		return nil, err
	}

	err = c.store.Insert(ctx, record)
	if err == nil {
		return c.lease(scope, key, record), nil
	}
	if !errors.Is(err, shared.ErrAlreadyExists) {
		return nil, err
	}

	existing, err := c.store.Find(ctx, scope.String(), key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Removed between insert and read; the caller may retry
			return nil, idempotency.ErrInProgress
		}
		return nil, err
	}

	switch existing.Status {
	case idempotency.StatusCompleted:
		if !existing.FingerprintMatches(fingerprint) {
			return nil, idempotency.ErrKeyReused
		}
		c.logger.Debug("Idempotency replay",
			zap.String("scope", existing.Scope),
			zap.String("key", key),
		)
		return &Acquisition{Decision: DecisionReplay, Envelope: existing.Response, Scope: scope, Key: key}, nil

	case idempotency.StatusProcessing:
		if !existing.IsExpired(now) {
			if !existing.FingerprintMatches(fingerprint) {
				return nil, idempotency.ErrKeyReused
			}
			return nil, idempotency.ErrInProgress
		}
		c.logger.Warn("Reacquiring expired idempotency record",
			zap.String("scope", existing.Scope),
			zap.String("key", key),
			zap.Time("expired_at", existing.ExpiresAt),
		)
	}

	if err := existing.Reacquire(fingerprint, c.ttl, now); err != nil {
		return nil, err
	}
	if err := c.store.Update(ctx, existing); err != nil {
		if errors.Is(err, shared.ErrConcurrentModification) {
			return nil, idempotency.ErrInProgress
		}
		return nil, err
	}
	return c.lease(scope, key, existing), nil
}

func (c *Coordinator) lease(scope idempotency.Scope, key string, held *idempotency.Record) *Acquisition {
	return &Acquisition{Decision: DecisionProceed, Scope: scope, Key: key, version: held.Version}
}

// Complete stores the final response of a held attempt
func (c *Coordinator) Complete(ctx context.Context, held *Acquisition, envelope *idempotency.ResponseEnvelope) error {
	return c.finish(ctx, held, func(r *idempotency.Record, now time.Time) error {
		return r.Complete(envelope, now)
	})
}

// Fail releases a held attempt so the key may be retried
func (c *Coordinator) Fail(ctx context.Context, held *Acquisition) error {
	return c.finish(ctx, held, func(r *idempotency.Record, now time.Time) error {
		return r.Fail(now)
	})
}

// finish applies transition only while the record still carries the version
// this attempt wrote; an expired attempt cannot overwrite its successor.
func (c *Coordinator) finish(ctx context.Context, held *Acquisition, transition func(*idempotency.Record, time.Time) error) error {
	if held == nil || held.Decision != DecisionProceed {
		return idempotency.ErrNotHeld
	}
	record, err := c.store.Find(ctx, held.Scope.String(), held.Key)
	if err != nil {
		return err
	}
	if record.Version != held.version {
		c.logger.Warn("Idempotency lease lost",
			zap.String("scope", record.Scope),
			zap.String("key", held.Key),
			zap.Int("held_version", held.version),
			zap.Int("stored_version", record.Version),
		)
		return idempotency.ErrLeaseLost
	}
	if err := transition(record, c.now()); err != nil {
		return err
	}
	if err := c.store.Update(ctx, record); err != nil {
		if errors.Is(err, shared.ErrConcurrentModification) {
			return idempotency.ErrLeaseLost
		}
		return err
	}
	held.version = record.Version
	return nil
}
