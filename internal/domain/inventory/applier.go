package inventory

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Applier moves inventory levels and records one movement per change.
// It works against the repositories it is built with, so constructing it from
// transactional repositories makes every Apply part of that transaction.
type Applier struct {
	levels    LevelRepository
	movements MovementRepository
	policy    StockPolicy
}

// NewApplier creates an Applier
func NewApplier(levels LevelRepository, movements MovementRepository, policy StockPolicy) *Applier {
	return &Applier{
		levels:    levels,
		movements: movements,
		policy:    policy,
	}
}

// Apply shifts itemID by delta. A zero delta records nothing and returns a nil movement.
func (a *Applier) Apply(ctx context.Context, actor shared.Actor, itemID uuid.UUID, delta decimal.Decimal, cause Cause) (*Movement, error) {
	if delta.IsZero() {
		return nil, nil
	}

	level, err := a.levels.FindByIDForTenant(ctx, actor.TenantID, itemID)
	if err != nil {
		return nil, err
	}

	before, after, err := level.Shift(delta, a.policy)
	if err != nil {
		return nil, err
	}

	movement, err := NewMovement(actor, itemID, delta, before, after, cause)
	if err != nil {
		return nil, err
	}

	if err := a.levels.SaveWithLock(ctx, level); err != nil {
		return nil, err
	}
	if err := a.movements.Create(ctx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

// Open creates a level for sku and books opening stock as an INITIAL_STOCK
// movement, so the level always equals the sum of its movements.
// A zero opening creates the level without a movement.
func (a *Applier) Open(ctx context.Context, actor shared.Actor, sku string, opening decimal.Decimal, reason string) (*Level, *Movement, error) {
	if opening.IsNegative() {
		return nil, nil, shared.NewValidationError("INVALID_QUANTITY", "Opening quantity cannot be negative")
	}
	level, err := NewLevel(actor.TenantID, sku)
	if err != nil {
		return nil, nil, err
	}

	var movement *Movement
	if opening.IsPositive() {
		before, after, err := level.Shift(opening, a.policy)
		if err != nil {
			return nil, nil, err
		}
		movement, err = NewMovement(actor, level.ID, opening, before, after, Cause{
			TransactionID: uuid.New(),
			SourceType:    SourceTypeInitialStock,
			SourceID:      level.ID,
			Reason:        reason,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	if err := a.levels.Create(ctx, level); err != nil {
		return nil, nil, err
	}
	if movement != nil {
		if err := a.movements.Create(ctx, movement); err != nil {
			return nil, nil, err
		}
	}
	return level, movement, nil
}
