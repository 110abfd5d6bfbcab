package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryLevelModel is the persistence model for an inventory Level.
type InventoryLevelModel struct {
	TenantAggregateModel
	SKU      string          `gorm:"column:sku;type:varchar(100);not null"`
	Quantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryLevelModel) TableName() string {
	return "inventory_levels"
}

// ToDomain converts the persistence model to a domain Level.
func (m *InventoryLevelModel) ToDomain() *inventory.Level {
	return &inventory.Level{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		SKU:                 m.SKU,
		Quantity:            m.Quantity,
	}
}

// InventoryLevelModelFromDomain creates a persistence model from a domain Level.
func InventoryLevelModelFromDomain(l *inventory.Level) *InventoryLevelModel {
	m := &InventoryLevelModel{
		SKU:      l.SKU,
		Quantity: l.Quantity,
	}
	m.FromDomainTenantAggregateRoot(l.TenantAggregateRoot)
	return m
}

// InventoryMovementModel is the persistence model for an immutable Movement.
type InventoryMovementModel struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	Delta               decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LevelBefore         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LevelAfter          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CausalTransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	SourceType          string          `gorm:"type:varchar(30);not null"`
	SourceID            uuid.UUID       `gorm:"type:uuid;not null"`
	SourceLineID        *uuid.UUID      `gorm:"type:uuid"`
	Reason              string          `gorm:"type:varchar(500)"`
	ActorID             uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt           time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InventoryMovementModel) TableName() string {
	return "inventory_movements"
}

// ToDomain converts the persistence model to a domain Movement.
func (m *InventoryMovementModel) ToDomain() inventory.Movement {
	return inventory.Movement{
		ID:                  m.ID,
		TenantID:            m.TenantID,
		ItemID:              m.ItemID,
		Delta:               m.Delta,
		LevelBefore:         m.LevelBefore,
		LevelAfter:          m.LevelAfter,
		CausalTransactionID: m.CausalTransactionID,
		SourceType:          inventory.SourceType(m.SourceType),
		SourceID:            m.SourceID,
		SourceLineID:        m.SourceLineID,
		Reason:              m.Reason,
		ActorID:             m.ActorID,
		CreatedAt:           m.CreatedAt,
	}
}

// InventoryMovementModelFromDomain creates a persistence model from a domain Movement.
func InventoryMovementModelFromDomain(mv *inventory.Movement) *InventoryMovementModel {
	return &InventoryMovementModel{
		ID:                  mv.ID,
		TenantID:            mv.TenantID,
		ItemID:              mv.ItemID,
		Delta:               mv.Delta,
		LevelBefore:         mv.LevelBefore,
		LevelAfter:          mv.LevelAfter,
		CausalTransactionID: mv.CausalTransactionID,
		SourceType:          string(mv.SourceType),
		SourceID:            mv.SourceID,
		SourceLineID:        mv.SourceLineID,
		Reason:              mv.Reason,
		ActorID:             mv.ActorID,
		CreatedAt:           mv.CreatedAt,
	}
}
