package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LevelRepository persists inventory levels
type LevelRepository interface {
	// FindByIDForTenant loads a level, shared.ErrNotFound when absent
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Level, error)

	// Create inserts a new level
	Create(ctx context.Context, level *Level) error

	// SaveWithLock writes the level if its stored version still equals level.Version,
	// then advances level.Version
	SaveWithLock(ctx context.Context, level *Level) error
}

// MovementRepository persists the append-only movement log
type MovementRepository interface {
	Create(ctx context.Context, movement *Movement) error

	// FindByTransaction returns every movement stamped with a causal transaction ID
	FindByTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) ([]Movement, error)

	// SumDeltas returns the sum of all movement deltas for an item
	SumDeltas(ctx context.Context, tenantID, itemID uuid.UUID) (decimal.Decimal, error)
}
