package document

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountPlaces is the rounding scale of invoice amounts
const AmountPlaces = 2

// InvoiceLine is priced from a fulfillment line
type InvoiceLine struct {
	ID                uuid.UUID
	InvoiceID         uuid.UUID
	FulfillmentLineID uuid.UUID
	Description       string
	Quantity          decimal.Decimal
	UnitPrice         decimal.Decimal
	Discount          decimal.Decimal
	TaxRate           decimal.Decimal
	Amount            decimal.Decimal
}

// LineAmount computes quantity x unitPrice x (1 - discount) x (1 + taxRate) rounded to cents
func LineAmount(quantity, unitPrice, discount, taxRate decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	return quantity.
		Mul(unitPrice).
		Mul(one.Sub(discount)).
		Mul(one.Add(taxRate)).
		Round(AmountPlaces)
}

// Recompute sets the quantity and derives the amount
func (l *InvoiceLine) Recompute(quantity decimal.Decimal) {
	l.Quantity = quantity
	l.Amount = LineAmount(quantity, l.UnitPrice, l.Discount, l.TaxRate)
}

// Validate checks pricing inputs
func (l *InvoiceLine) Validate() error {
	if l.UnitPrice.IsNegative() {
		return shared.NewValidationError("INVALID_UNIT_PRICE", "Unit price cannot be negative")
	}
	if l.Discount.IsNegative() || l.Discount.GreaterThan(decimal.NewFromInt(1)) {
		return shared.NewValidationError("INVALID_DISCOUNT", "Discount must be between 0 and 1")
	}
	if l.TaxRate.IsNegative() {
		return shared.NewValidationError("INVALID_TAX_RATE", "Tax rate cannot be negative")
	}
	return nil
}

// Invoice is the sales invoice linked to a fulfillment order
type Invoice struct {
	shared.TenantAggregateRoot
	FulfillmentOrderID uuid.UUID
	CustomerPartyID    uuid.UUID
	State              State
	Number             string
	Lines              []InvoiceLine
	Total              decimal.Decimal
	IssuedAt           *time.Time
	IssuedBy           *uuid.UUID
}

// NewInvoice creates a DRAFT invoice
func NewInvoice(tenantID, orderID, customerPartyID uuid.UUID) *Invoice {
	return &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		FulfillmentOrderID:  orderID,
		CustomerPartyID:     customerPartyID,
		State:               StateDraft,
		Total:               decimal.Zero,
	}
}

// AddLine appends a priced line to a draft invoice
func (inv *Invoice) AddLine(fulfillmentLineID uuid.UUID, description string, unitPrice, discount, taxRate decimal.Decimal) (*InvoiceLine, error) {
	if inv.State != StateDraft {
		return nil, shared.NewStateConflictError("INVOICE_NOT_DRAFT", "Lines can only be added to a DRAFT invoice")
	}
	line := InvoiceLine{
		ID:                uuid.New(),
		InvoiceID:         inv.ID,
		FulfillmentLineID: fulfillmentLineID,
		Description:       description,
		Quantity:          decimal.Zero,
		UnitPrice:         unitPrice,
		Discount:          discount,
		TaxRate:           taxRate,
		Amount:            decimal.Zero,
	}
	if err := line.Validate(); err != nil {
		return nil, err
	}
	inv.Lines = append(inv.Lines, line)
	return &inv.Lines[len(inv.Lines)-1], nil
}

// Issue recomputes every line from the delivered quantities and moves the invoice DRAFT -> ISSUED.
// quantities is keyed by fulfillment line ID; lines without an entry are invoiced at zero.
func (inv *Invoice) Issue(actor shared.Actor, number string, quantities map[uuid.UUID]decimal.Decimal) error {
	if inv.State != StateDraft {
		return shared.NewStateConflictError("INVOICE_NOT_ISSUABLE",
			"Invoice can only be issued from DRAFT, current state is "+inv.State.String())
	}
	if number == "" {
		return shared.NewValidationError("INVALID_DOCUMENT_NUMBER", "Invoice number is required")
	}

	total := decimal.Zero
	for i := range inv.Lines {
		qty, ok := quantities[inv.Lines[i].FulfillmentLineID]
		if !ok {
			qty = decimal.Zero
		}
		inv.Lines[i].Recompute(qty)
		total = total.Add(inv.Lines[i].Amount)
	}

	now := time.Now()
	inv.Total = total
	inv.State = StateIssued
	inv.Number = number
	inv.IssuedAt = &now
	inv.IssuedBy = &actor.ActorID
	inv.Touch()
	return nil
}
