package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity holds identity and timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch moves UpdatedAt forward
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}

// TenantAggregateRoot is embedded by every tenant-owned aggregate.
// Version is the value read from storage; repositories write Version+1 conditioned on it,
// so a new aggregate starts at 1.
type TenantAggregateRoot struct {
	BaseEntity
	TenantID uuid.UUID
	Version  int
}

// NewTenantAggregateRoot creates the root of a new aggregate owned by tenantID
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	now := time.Now()
	return TenantAggregateRoot{
		BaseEntity: BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		TenantID:   tenantID,
		Version:    1,
	}
}
