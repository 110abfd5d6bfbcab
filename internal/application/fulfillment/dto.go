package fulfillment

import (
	"encoding/json"
	"time"

	"github.com/erp/fulfillment/internal/domain/document"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConfirmOrderInput is the operator's confirmation
type ConfirmOrderInput struct {
	Lines    []ConfirmLineInput `json:"lines" binding:"required,dive"`
	Evidence json.RawMessage    `json:"evidence,omitempty"`
}

// ConfirmLineInput is the reported quantity of one line
type ConfirmLineInput struct {
	LineID         uuid.UUID        `json:"lineId" binding:"required"`
	ReportedQty    *decimal.Decimal `json:"reportedQty" binding:"required"`
	VarianceReason string           `json:"varianceReason,omitempty" binding:"omitempty,max=500"`
}

func (in ConfirmOrderInput) reports() []fulfillment.LineReport {
	out := make([]fulfillment.LineReport, 0, len(in.Lines))
	for _, l := range in.Lines {
		qty := decimal.Zero
		if l.ReportedQty != nil {
			qty = *l.ReportedQty
		}
		out = append(out, fulfillment.LineReport{
			LineID:         l.LineID,
			ReportedQty:    qty,
			VarianceReason: l.VarianceReason,
		})
	}
	return out
}

// ConfirmResult is the response of a successful confirmation. It is stored verbatim
// in the idempotency envelope, so field order and names are part of the replay contract.
type ConfirmResult struct {
	TransactionID           uuid.UUID       `json:"transactionId"`
	Order                   StateRef        `json:"order"`
	ParentSaleOrder         StateRef        `json:"parentSaleOrder"`
	ShipmentDocument        DocumentRef     `json:"shipmentDocument"`
	Invoice                 *InvoiceRef     `json:"invoice,omitempty"`
	InventoryMovementsCount int             `json:"inventoryMovementsCount"`
	LedgerEntryCreated      bool            `json:"ledgerEntryCreated"`
	BalanceUpdated          bool            `json:"balanceUpdated"`
	Differences             []DifferenceDTO `json:"differences"`
}

// StateRef identifies an aggregate and its state
type StateRef struct {
	ID    uuid.UUID `json:"id"`
	State string    `json:"state"`
}

// DocumentRef identifies an issued document
type DocumentRef struct {
	ID     uuid.UUID `json:"id"`
	Number string    `json:"number"`
	State  string    `json:"state"`
}

// InvoiceRef identifies an invoice and its total
type InvoiceRef struct {
	ID     uuid.UUID       `json:"id"`
	Number string          `json:"number"`
	State  string          `json:"state"`
	Total  decimal.Decimal `json:"total"`
}

// DifferenceDTO is a line whose actual quantity differs from plan
type DifferenceDTO struct {
	LineID  uuid.UUID       `json:"lineId"`
	Planned decimal.Decimal `json:"planned"`
	Actual  decimal.Decimal `json:"actual"`
	Reason  string          `json:"reason,omitempty"`
}

func toDocumentRef(d *document.ShipmentDocument) DocumentRef {
	return DocumentRef{ID: d.ID, Number: d.Number, State: d.State.String()}
}

func toInvoiceRef(inv *document.Invoice) *InvoiceRef {
	if inv == nil {
		return nil
	}
	return &InvoiceRef{ID: inv.ID, Number: inv.Number, State: inv.State.String(), Total: inv.Total}
}

// ConfirmOutcome is what the transport writes back: the status and the exact body bytes.
type ConfirmOutcome struct {
	StatusCode int
	Body       []byte
	Replayed   bool
}

// OrderView is the read model of a fulfillment order
type OrderView struct {
	ID               uuid.UUID   `json:"id"`
	Number           string      `json:"number"`
	State            string      `json:"state"`
	Version          int         `json:"version"`
	ParentSaleOrder  StateRef    `json:"parentSaleOrder"`
	ShipmentDocument DocumentRef `json:"shipmentDocument"`
	Invoice          *InvoiceRef `json:"invoice,omitempty"`
	Lines            []LineView  `json:"lines"`
	ConfirmedAt      *time.Time  `json:"confirmedAt,omitempty"`
	ConfirmedBy      *uuid.UUID  `json:"confirmedBy,omitempty"`
}

// LineView is the read model of a fulfillment line
type LineView struct {
	ID              uuid.UUID        `json:"id"`
	InventoryItemID uuid.UUID        `json:"inventoryItemId"`
	Description     string           `json:"description,omitempty"`
	PlannedQty      decimal.Decimal  `json:"plannedQty"`
	ActualQty       *decimal.Decimal `json:"actualQty,omitempty"`
	VarianceReason  string           `json:"varianceReason,omitempty"`
}
