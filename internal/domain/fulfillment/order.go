// Package fulfillment models fulfillment orders, their lines and the parent sale order they deliver.
package fulfillment

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderState is the lifecycle state of a fulfillment order
type OrderState string

const (
	OrderStatePending    OrderState = "PENDING"
	OrderStateInProgress OrderState = "IN_PROGRESS"
	OrderStateConfirmed  OrderState = "CONFIRMED"
	OrderStateCancelled  OrderState = "CANCELLED"
)

// IsValid checks if the state is a known value
func (s OrderState) IsValid() bool {
	switch s {
	case OrderStatePending, OrderStateInProgress, OrderStateConfirmed, OrderStateCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s OrderState) String() string {
	return string(s)
}

// CanTransitionTo checks if the state can move to target
func (s OrderState) CanTransitionTo(target OrderState) bool {
	switch s {
	case OrderStatePending:
		return target == OrderStateInProgress || target == OrderStateConfirmed || target == OrderStateCancelled
	case OrderStateInProgress:
		return target == OrderStateConfirmed || target == OrderStateCancelled
	}
	return false
}

// Line is one planned delivery of one inventory item.
// ActualQty is nil until the line is confirmed and never changes afterwards.
type Line struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	InventoryItemID uuid.UUID
	Description     string
	PlannedQty      decimal.Decimal
	ActualQty       *decimal.Decimal
	VarianceReason  string
}

// IsConfirmed returns true once the actual quantity is recorded
func (l *Line) IsConfirmed() bool {
	return l.ActualQty != nil
}

// LineReport is the quantity an operator reports for a line
type LineReport struct {
	LineID         uuid.UUID
	ReportedQty    decimal.Decimal
	VarianceReason string
}

// Difference is a line whose actual quantity differs from plan
type Difference struct {
	LineID  uuid.UUID
	Planned decimal.Decimal
	Actual  decimal.Decimal
	Reason  string
}

// Order is a fulfillment order
type Order struct {
	shared.TenantAggregateRoot
	Number             string
	ParentSaleOrderID  uuid.UUID
	ShipmentDocumentID uuid.UUID
	InvoiceID          *uuid.UUID
	State              OrderState
	Lines              []Line
	ConfirmedAt        *time.Time
	ConfirmedBy        *uuid.UUID
}

// NewOrder creates a PENDING fulfillment order
func NewOrder(tenantID, parentSaleOrderID, shipmentDocumentID uuid.UUID, number string) (*Order, error) {
	if number == "" {
		return nil, shared.NewValidationError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if parentSaleOrderID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PARENT_ORDER", "Parent sale order ID is required")
	}
	return &Order{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              number,
		ParentSaleOrderID:   parentSaleOrderID,
		ShipmentDocumentID:  shipmentDocumentID,
		State:               OrderStatePending,
	}, nil
}

// AddLine adds a planned line to a pending order
func (o *Order) AddLine(itemID uuid.UUID, description string, planned decimal.Decimal) (*Line, error) {
	if o.State != OrderStatePending {
		return nil, shared.NewStateConflictError("ORDER_NOT_PENDING", "Lines can only be added to a PENDING order")
	}
	if itemID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_ITEM", "Inventory item ID is required")
	}
	if planned.IsNegative() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Planned quantity cannot be negative")
	}
	o.Lines = append(o.Lines, Line{
		ID:              uuid.New(),
		OrderID:         o.ID,
		InventoryItemID: itemID,
		Description:     description,
		PlannedQty:      planned,
	})
	return &o.Lines[len(o.Lines)-1], nil
}

// Line returns the line with the given ID
func (o *Order) Line(id uuid.UUID) (*Line, bool) {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i], true
		}
	}
	return nil, false
}

// EnsureConfirmable rejects orders that are not PENDING or IN_PROGRESS
func (o *Order) EnsureConfirmable() error {
	if o.State != OrderStatePending && o.State != OrderStateInProgress {
		return shared.NewStateConflictError("ORDER_NOT_CONFIRMABLE",
			"Fulfillment order cannot be confirmed in state "+o.State.String())
	}
	return nil
}

// ValidateReports checks a confirmation covers every line exactly once with usable quantities
func (o *Order) ValidateReports(reports []LineReport) error {
	seen := make(map[uuid.UUID]struct{}, len(reports))
	for _, r := range reports {
		line, ok := o.Line(r.LineID)
		if !ok {
			return shared.NewValidationError("UNKNOWN_LINE", "Line "+r.LineID.String()+" does not belong to order "+o.Number)
		}
		if _, dup := seen[r.LineID]; dup {
			return shared.NewValidationError("DUPLICATE_LINE", "Line "+r.LineID.String()+" is reported more than once")
		}
		seen[r.LineID] = struct{}{}
		if r.ReportedQty.IsNegative() {
			return shared.NewValidationError("INVALID_QUANTITY", "Reported quantity cannot be negative for line "+r.LineID.String())
		}
		if line.IsConfirmed() {
			return shared.NewStateConflictError("LINE_ALREADY_CONFIRMED", "Line "+r.LineID.String()+" already has an actual quantity")
		}
		if r.ReportedQty.GreaterThan(line.PlannedQty) && r.VarianceReason == "" {
			return shared.NewValidationError("VARIANCE_REASON_REQUIRED",
				"Reported quantity exceeds plan for line "+r.LineID.String()+"; a variance reason is required")
		}
	}
	if len(seen) != len(o.Lines) {
		return shared.NewValidationError("MISSING_LINES", "Every order line must be reported")
	}
	return nil
}

// RecordActual sets the line's actual quantity and returns its difference from plan, if any
func (o *Order) RecordActual(report LineReport) (*Difference, error) {
	line, ok := o.Line(report.LineID)
	if !ok {
		return nil, shared.NewValidationError("UNKNOWN_LINE", "Line "+report.LineID.String()+" does not belong to order "+o.Number)
	}
	if line.IsConfirmed() {
		return nil, shared.NewStateConflictError("LINE_ALREADY_CONFIRMED", "Line "+report.LineID.String()+" already has an actual quantity")
	}
	actual := report.ReportedQty
	line.ActualQty = &actual
	line.VarianceReason = report.VarianceReason

	if line.PlannedQty.Equal(actual) {
		return nil, nil
	}
	return &Difference{
		LineID:  line.ID,
		Planned: line.PlannedQty,
		Actual:  actual,
		Reason:  report.VarianceReason,
	}, nil
}

// Outcomes returns planned/actual pairs for every line; unconfirmed lines count as zero delivered
func (o *Order) Outcomes() []LineOutcome {
	out := make([]LineOutcome, 0, len(o.Lines))
	for _, l := range o.Lines {
		actual := decimal.Zero
		if l.ActualQty != nil {
			actual = *l.ActualQty
		}
		out = append(out, LineOutcome{Planned: l.PlannedQty, Actual: actual})
	}
	return out
}

// IsFullyDelivered returns true when no line is under-delivered
func (o *Order) IsFullyDelivered() bool {
	for _, oc := range o.Outcomes() {
		if oc.Actual.LessThan(oc.Planned) {
			return false
		}
	}
	return true
}

// Confirm moves the order to CONFIRMED
func (o *Order) Confirm(actor shared.Actor) error {
	if !o.State.CanTransitionTo(OrderStateConfirmed) {
		return shared.NewStateConflictError("ORDER_NOT_CONFIRMABLE",
			"Fulfillment order cannot be confirmed in state "+o.State.String())
	}
	now := time.Now()
	o.State = OrderStateConfirmed
	o.ConfirmedAt = &now
	o.ConfirmedBy = &actor.ActorID
	o.Touch()
	return nil
}
