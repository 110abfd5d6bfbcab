package document

import (
	"context"
	"encoding/json"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Emitter issues documents: it allocates the number, applies the state transition and stores the result.
type Emitter struct {
	shipments ShipmentRepository
	invoices  InvoiceRepository
	numbering Numbering
}

// NewEmitter creates an Emitter
func NewEmitter(shipments ShipmentRepository, invoices InvoiceRepository, numbering Numbering) *Emitter {
	return &Emitter{shipments: shipments, invoices: invoices, numbering: numbering}
}

// IssueShipment moves a shipment PREPARED -> ISSUED
func (e *Emitter) IssueShipment(ctx context.Context, actor shared.Actor, doc *ShipmentDocument, evidence json.RawMessage) error {
	if doc.State != StatePrepared {
		return shared.NewStateConflictError("SHIPMENT_NOT_ISSUABLE",
			"Shipment document can only be issued from PREPARED, current state is "+doc.State.String())
	}
	number, err := e.numbering.Next(ctx, actor.TenantID, KindShipment)
	if err != nil {
		return err
	}
	if err := doc.Issue(actor, number, evidence); err != nil {
		return err
	}
	return e.shipments.SaveWithLock(ctx, doc)
}

// IssueInvoice recomputes lines from delivered quantities and moves the invoice DRAFT -> ISSUED
func (e *Emitter) IssueInvoice(ctx context.Context, actor shared.Actor, inv *Invoice, quantities map[uuid.UUID]decimal.Decimal) error {
	if inv.State != StateDraft {
		return shared.NewStateConflictError("INVOICE_NOT_ISSUABLE",
			"Invoice can only be issued from DRAFT, current state is "+inv.State.String())
	}
	number, err := e.numbering.Next(ctx, actor.TenantID, KindInvoice)
	if err != nil {
		return err
	}
	if err := inv.Issue(actor, number, quantities); err != nil {
		return err
	}
	return e.invoices.SaveWithLock(ctx, inv)
}
