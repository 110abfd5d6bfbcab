package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/idempotency"
	"github.com/google/uuid"
)

// IdempotencyRecordModel is the persistence model for an idempotency Record.
// (scope, key) is unique.
type IdempotencyRecordModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	Scope              string    `gorm:"type:varchar(200);not null;uniqueIndex:idx_idempotency_scope_key,priority:1"`
	Key                string    `gorm:"column:idempotency_key;type:varchar(255);not null;uniqueIndex:idx_idempotency_scope_key,priority:2"`
	Status             string    `gorm:"type:varchar(20);not null"`
	RequestFingerprint string    `gorm:"type:varchar(64)"`
	Response           *string   `gorm:"type:text"`
	ExpiresAt          time.Time `gorm:"not null;index"`
	Version            int       `gorm:"not null;default:1"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IdempotencyRecordModel) TableName() string {
	return "idempotency_records"
}

// ToDomain converts the persistence model to a domain Record.
func (m *IdempotencyRecordModel) ToDomain() (*idempotency.Record, error) {
	r := &idempotency.Record{
		ID:                 m.ID,
		Scope:              m.Scope,
		Key:                m.Key,
		Status:             idempotency.Status(m.Status),
		RequestFingerprint: m.RequestFingerprint,
		ExpiresAt:          m.ExpiresAt,
		Version:            m.Version,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if m.Response != nil {
		env, err := idempotency.UnmarshalEnvelope([]byte(*m.Response))
		if err != nil {
			return nil, err
		}
		r.Response = env
	}
	return r, nil
}

// IdempotencyRecordModelFromDomain creates a persistence model from a domain Record.
func IdempotencyRecordModelFromDomain(r *idempotency.Record) (*IdempotencyRecordModel, error) {
	m := &IdempotencyRecordModel{
		ID:                 r.ID,
		Scope:              r.Scope,
		Key:                r.Key,
		Status:             string(r.Status),
		RequestFingerprint: r.RequestFingerprint,
		ExpiresAt:          r.ExpiresAt,
		Version:            r.Version,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.Response != nil {
		raw, err := r.Response.Marshal()
		if err != nil {
			return nil, err
		}
		m.Response = optionalJSON(raw)
	}
	return m, nil
}
