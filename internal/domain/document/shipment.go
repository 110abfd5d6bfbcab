package document

import (
	"encoding/json"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// ShipmentDocument is the delivery note attached to a fulfillment order
type ShipmentDocument struct {
	shared.TenantAggregateRoot
	FulfillmentOrderID uuid.UUID
	State              State
	Number             string
	Evidence           json.RawMessage
	IssuedAt           *time.Time
	IssuedBy           *uuid.UUID
}

// NewShipmentDocument creates a PREPARED shipment for an order
func NewShipmentDocument(tenantID, orderID uuid.UUID) *ShipmentDocument {
	return &ShipmentDocument{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		FulfillmentOrderID:  orderID,
		State:               StatePrepared,
	}
}

// Issue moves the shipment PREPARED -> ISSUED
func (s *ShipmentDocument) Issue(actor shared.Actor, number string, evidence json.RawMessage) error {
	if s.State != StatePrepared {
		return shared.NewStateConflictError("SHIPMENT_NOT_ISSUABLE",
			"Shipment document can only be issued from PREPARED, current state is "+s.State.String())
	}
	if number == "" {
		return shared.NewValidationError("INVALID_DOCUMENT_NUMBER", "Shipment number is required")
	}
	if len(evidence) > 0 && !json.Valid(evidence) {
		return shared.NewValidationError("INVALID_EVIDENCE", "Evidence must be valid JSON")
	}
	now := time.Now()
	s.State = StateIssued
	s.Number = number
	s.Evidence = evidence
	s.IssuedAt = &now
	s.IssuedBy = &actor.ActorID
	s.Touch()
	return nil
}
