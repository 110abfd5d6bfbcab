package inventory

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Level is the on-hand quantity of one inventory item
type Level struct {
	shared.TenantAggregateRoot
	SKU      string
	Quantity decimal.Decimal
}

// NewLevel creates an empty inventory level. Stock only arrives through
// movements, starting with Applier.Open.
func NewLevel(tenantID uuid.UUID, sku string) (*Level, error) {
	if sku == "" {
		return nil, shared.NewValidationError("INVALID_SKU", "SKU cannot be empty")
	}
	return &Level{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SKU:                 sku,
		Quantity:            decimal.Zero,
	}, nil
}

// StockPolicy controls how levels may move
type StockPolicy struct {
	AllowNegative bool
}

// Shift moves the level by delta and returns the before/after pair.
// The level is left untouched when the policy rejects the result.
func (l *Level) Shift(delta decimal.Decimal, policy StockPolicy) (before, after decimal.Decimal, err error) {
	before = l.Quantity
	after = before.Add(delta)
	if after.IsNegative() && !policy.AllowNegative {
		return before, before, shared.NewValidationError("INSUFFICIENT_STOCK",
			"Insufficient stock for item "+l.SKU+": on hand "+before.String()+", requested "+delta.Neg().String())
	}
	l.Quantity = after
	l.Touch()
	return before, after, nil
}
