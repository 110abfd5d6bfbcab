package persistence

import (
	"context"
	"errors"

	"github.com/erp/fulfillment/internal/domain/idempotency"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormIdempotencyRecordStore implements idempotency.RecordStore on the idempotency_records table.
// It runs outside the confirmation transaction so FAILED and COMPLETED survive a rollback.
type GormIdempotencyRecordStore struct {
	db *gorm.DB
}

// NewGormIdempotencyRecordStore creates a new GormIdempotencyRecordStore
func NewGormIdempotencyRecordStore(db *gorm.DB) *GormIdempotencyRecordStore {
	return &GormIdempotencyRecordStore{db: db}
}

// Insert adds a record; an existing (scope, key) yields shared.ErrAlreadyExists
func (s *GormIdempotencyRecordStore) Insert(ctx context.Context, record *idempotency.Record) error {
	m, err := models.IdempotencyRecordModelFromDomain(record)
	if err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrAlreadyExists
	}
	return nil
}

// Find loads the record for (scope, key)
func (s *GormIdempotencyRecordStore) Find(ctx context.Context, scope, key string) (*idempotency.Record, error) {
	var m models.IdempotencyRecordModel
	err := s.db.WithContext(ctx).
		Where("scope = ? AND idempotency_key = ?", scope, key).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain()
}

// Update swaps the record if its stored version still matches
func (s *GormIdempotencyRecordStore) Update(ctx context.Context, record *idempotency.Record) error {
	m, err := models.IdempotencyRecordModelFromDomain(record)
	if err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Model(&models.IdempotencyRecordModel{}).
		Where("id = ? AND version = ?", record.ID, record.Version).
		Updates(map[string]any{
			"status":              m.Status,
			"request_fingerprint": m.RequestFingerprint,
			"response":            m.Response,
			"expires_at":          m.ExpiresAt,
			"version":             record.Version + 1,
			"updated_at":          m.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}
	record.Version++
	return nil
}

var _ idempotency.RecordStore = (*GormIdempotencyRecordStore)(nil)
