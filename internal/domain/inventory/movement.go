package inventory

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SourceType is the kind of document that caused a movement
type SourceType string

const (
	SourceTypeFulfillmentOrder SourceType = "FULFILLMENT_ORDER"
	SourceTypeManualAdjustment SourceType = "MANUAL_ADJUSTMENT"
	SourceTypeInitialStock     SourceType = "INITIAL_STOCK"
)

// String returns the string representation of SourceType
func (s SourceType) String() string {
	return string(s)
}

// IsValid returns true if the source type is valid
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeFulfillmentOrder, SourceTypeManualAdjustment, SourceTypeInitialStock:
		return true
	}
	return false
}

// Cause links a movement to the operation and document line that produced it
type Cause struct {
	TransactionID uuid.UUID
	SourceType    SourceType
	SourceID      uuid.UUID
	SourceLineID  *uuid.UUID
	Reason        string
}

// Movement is an immutable record of one change to an inventory level.
// Movements are never updated or deleted.
type Movement struct {
	ID                  uuid.UUID
	TenantID            uuid.UUID
	ItemID              uuid.UUID
	Delta               decimal.Decimal
	LevelBefore         decimal.Decimal
	LevelAfter          decimal.Decimal
	CausalTransactionID uuid.UUID
	SourceType          SourceType
	SourceID            uuid.UUID
	SourceLineID        *uuid.UUID
	Reason              string
	ActorID             uuid.UUID
	CreatedAt           time.Time
}

// NewMovement builds a movement and checks before + delta = after
func NewMovement(actor shared.Actor, itemID uuid.UUID, delta, before, after decimal.Decimal, cause Cause) (*Movement, error) {
	if itemID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_ITEM", "Inventory item ID cannot be empty")
	}
	if delta.IsZero() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Movement delta cannot be zero")
	}
	if !before.Add(delta).Equal(after) {
		return nil, shared.NewValidationError("INVALID_BALANCE", "Level after must equal level before plus delta")
	}
	if !cause.SourceType.IsValid() {
		return nil, shared.NewValidationError("INVALID_SOURCE_TYPE", "Invalid movement source type")
	}
	if cause.TransactionID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_TRANSACTION", "Causal transaction ID is required")
	}
	return &Movement{
		ID:                  uuid.New(),
		TenantID:            actor.TenantID,
		ItemID:              itemID,
		Delta:               delta,
		LevelBefore:         before,
		LevelAfter:          after,
		CausalTransactionID: cause.TransactionID,
		SourceType:          cause.SourceType,
		SourceID:            cause.SourceID,
		SourceLineID:        cause.SourceLineID,
		Reason:              cause.Reason,
		ActorID:             actor.ActorID,
		CreatedAt:           time.Now(),
	}, nil
}

// IsOutbound returns true if the movement removed stock
func (m *Movement) IsOutbound() bool {
	return m.Delta.IsNegative()
}
