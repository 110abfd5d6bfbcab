// Package models holds the GORM persistence models and their domain mappers.
package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// TenantAggregateModel provides the common columns of tenant-scoped aggregate roots.
// Version is the optimistic-lock counter.
type TenantAggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// FromDomainTenantAggregateRoot populates the columns from a domain aggregate root
func (m *TenantAggregateModel) FromDomainTenantAggregateRoot(a shared.TenantAggregateRoot) {
	m.ID = a.ID
	m.TenantID = a.TenantID
	m.Version = a.Version
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
}

// ToDomainTenantAggregateRoot builds the domain aggregate root
func (m *TenantAggregateModel) ToDomainTenantAggregateRoot() shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID: m.TenantID,
		Version:  m.Version,
	}
}

func optionalJSON(raw []byte) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}

func jsonBytes(s *string) []byte {
	if s == nil {
		return nil
	}
	return []byte(*s)
}
