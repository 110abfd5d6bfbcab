package fulfillment

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// ParentOrderState is the delivery state of a sale order
type ParentOrderState string

const (
	ParentStateOpen               ParentOrderState = "OPEN"
	ParentStateInProgress         ParentOrderState = "IN_PROGRESS"
	ParentStatePartiallyFulfilled ParentOrderState = "PARTIALLY_FULFILLED"
	ParentStateFulfilled          ParentOrderState = "FULFILLED"
	ParentStateInvoiced           ParentOrderState = "INVOICED"
	ParentStateCancelled          ParentOrderState = "CANCELLED"
)

// IsValid checks if the state is a known value
func (s ParentOrderState) IsValid() bool {
	switch s {
	case ParentStateOpen, ParentStateInProgress, ParentStatePartiallyFulfilled,
		ParentStateFulfilled, ParentStateInvoiced, ParentStateCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s ParentOrderState) String() string {
	return string(s)
}

// IsTerminal returns true for states a reconciliation may not overwrite
func (s ParentOrderState) IsTerminal() bool {
	return s == ParentStateInvoiced || s == ParentStateCancelled
}

// SaleOrder is the customer order a fulfillment delivers against
type SaleOrder struct {
	shared.TenantAggregateRoot
	Number          string
	CustomerPartyID uuid.UUID
	State           ParentOrderState
}

// NewSaleOrder creates an OPEN sale order
func NewSaleOrder(tenantID, customerPartyID uuid.UUID, number string) (*SaleOrder, error) {
	if number == "" {
		return nil, shared.NewValidationError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if customerPartyID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_CUSTOMER", "Customer party ID is required")
	}
	return &SaleOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              number,
		CustomerPartyID:     customerPartyID,
		State:               ParentStateOpen,
	}, nil
}

// ApplyReconciliation writes a reconciled state
func (s *SaleOrder) ApplyReconciliation(state ParentOrderState) error {
	if s.State.IsTerminal() {
		return shared.NewStateConflictError("SALE_ORDER_CLOSED", "Sale order "+s.Number+" is already "+s.State.String())
	}
	if !state.IsValid() || state == ParentStateOpen || state == ParentStateCancelled {
		return shared.NewValidationError("INVALID_RECONCILED_STATE", "Invalid reconciled state "+state.String())
	}
	s.State = state
	s.Touch()
	return nil
}
