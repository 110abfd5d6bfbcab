// Package idempotency models the per-key record that guards a mutating operation.
package idempotency

import (
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// Status is the lifecycle state of an idempotency record
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// IsValid checks if the status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can move to target.
// PROCESSING -> PROCESSING is only valid for an expired attempt; the record enforces that.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusProcessing:
		return target == StatusCompleted || target == StatusFailed || target == StatusProcessing
	case StatusFailed:
		return target == StatusProcessing
	case StatusCompleted:
		return false
	}
	return false
}

// Scope binds a key to one operation on one entity of one tenant
type Scope struct {
	TenantID  uuid.UUID
	Operation string
	EntityID  uuid.UUID
}

// String returns the canonical scope string stored alongside the key
func (s Scope) String() string {
	return fmt.Sprintf("%s:%s:%s", s.TenantID, s.Operation, s.EntityID)
}

// Validate checks the scope is fully specified
func (s Scope) Validate() error {
	if s.TenantID == uuid.Nil || s.EntityID == uuid.Nil || s.Operation == "" {
		return shared.NewValidationError("INVALID_IDEMPOTENCY_SCOPE", "Idempotency scope requires tenant, operation and entity")
	}
	return nil
}

// MaxKeyLength bounds the caller-supplied key
const MaxKeyLength = 255

// ValidateKey checks a caller-supplied key
func ValidateKey(key string) error {
	if key == "" {
		return shared.NewValidationError("IDEMPOTENCY_KEY_REQUIRED", "Idempotency key is required")
	}
	if len(key) > MaxKeyLength {
		return shared.NewValidationError("IDEMPOTENCY_KEY_TOO_LONG", fmt.Sprintf("Idempotency key must be at most %d characters", MaxKeyLength))
	}
	return nil
}

// Errors surfaced by the coordinator
var (
	ErrInProgress = shared.NewStateConflictError("IDEMPOTENCY_IN_PROGRESS", "A request with this idempotency key is already being processed")
	ErrKeyReused  = shared.NewValidationError("IDEMPOTENCY_KEY_REUSED", "Idempotency key was already used with a different request body")
	ErrNotHeld    = shared.NewStateConflictError("IDEMPOTENCY_NOT_HELD", "Idempotency record is not in PROCESSING state")
	ErrLeaseLost  = shared.NewStateConflictError("IDEMPOTENCY_LEASE_LOST", "Idempotency key was reacquired by a later attempt")
)

// Record is the stored state of one (scope, key) pair
type Record struct {
	ID                 uuid.UUID
	Scope              string
	Key                string
	Status             Status
	RequestFingerprint string
	Response           *ResponseEnvelope
	ExpiresAt          time.Time
	Version            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewProcessingRecord creates the record for a first attempt
func NewProcessingRecord(scope Scope, key, fingerprint string, ttl time.Duration, now time.Time) (*Record, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return &Record{
		ID:                 uuid.New(),
		Scope:              scope.String(),
		Key:                key,
		Status:             StatusProcessing,
		RequestFingerprint: fingerprint,
		ExpiresAt:          now.Add(ttl),
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// IsExpired reports whether a PROCESSING attempt has outlived its TTL
func (r *Record) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// CanReacquire reports whether a new attempt may take over this record
func (r *Record) CanReacquire(now time.Time) bool {
	switch r.Status {
	case StatusFailed:
		return true
	case StatusProcessing:
		return r.IsExpired(now)
	}
	return false
}

// FingerprintMatches compares the stored request fingerprint.
// Records written without a fingerprint match everything.
func (r *Record) FingerprintMatches(fingerprint string) bool {
	return r.RequestFingerprint == "" || fingerprint == "" || r.RequestFingerprint == fingerprint
}

// Reacquire starts a new attempt on a FAILED or expired record
func (r *Record) Reacquire(fingerprint string, ttl time.Duration, now time.Time) error {
	if !r.CanReacquire(now) {
		return ErrInProgress
	}
	r.Status = StatusProcessing
	r.RequestFingerprint = fingerprint
	r.Response = nil
	r.ExpiresAt = now.Add(ttl)
	r.UpdatedAt = now
	return nil
}

// Complete stores the final response
func (r *Record) Complete(envelope *ResponseEnvelope, now time.Time) error {
	if r.Status != StatusProcessing {
		return ErrNotHeld
	}
	if envelope == nil {
		return shared.NewValidationError("INVALID_ENVELOPE", "Response envelope is required")
	}
	r.Status = StatusCompleted
	r.Response = envelope
	r.UpdatedAt = now
	return nil
}

// Fail marks the attempt as failed so the key may be retried
func (r *Record) Fail(now time.Time) error {
	if r.Status != StatusProcessing {
		return ErrNotHeld
	}
	r.Status = StatusFailed
	r.UpdatedAt = now
	return nil
}
