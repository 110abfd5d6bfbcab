package finance

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind is the side of a ledger entry
type EntryKind string

const (
	EntryKindDebit  EntryKind = "DEBIT"
	EntryKindCredit EntryKind = "CREDIT"
)

// IsValid returns true if the entry kind is valid
func (k EntryKind) IsValid() bool {
	return k == EntryKindDebit || k == EntryKindCredit
}

// Opposite returns the other side
func (k EntryKind) Opposite() EntryKind {
	if k == EntryKindDebit {
		return EntryKindCredit
	}
	return EntryKindDebit
}

// ReferenceType is the kind of document an entry refers to
type ReferenceType string

const (
	ReferenceTypeInvoice  ReferenceType = "INVOICE"
	ReferenceTypeReversal ReferenceType = "REVERSAL"
	ReferenceTypeManual   ReferenceType = "MANUAL"
)

// IsValid returns true if the reference type is valid
func (r ReferenceType) IsValid() bool {
	switch r {
	case ReferenceTypeInvoice, ReferenceTypeReversal, ReferenceTypeManual:
		return true
	}
	return false
}

// Reference links an entry to its source document and operation
type Reference struct {
	Type          ReferenceType
	ID            uuid.UUID
	Number        string
	TransactionID uuid.UUID
}

// LedgerEntry is an immutable posting. Corrections are made with a new entry whose
// ReversesEntryID points back at the original.
type LedgerEntry struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	AccountID       uuid.UUID
	Kind            EntryKind
	Amount          decimal.Decimal
	Reference       Reference
	ReversesEntryID *uuid.UUID
	Memo            string
	ActorID         uuid.UUID
	CreatedAt       time.Time
}

// NewLedgerEntry validates and builds an entry
func NewLedgerEntry(actor shared.Actor, accountID uuid.UUID, amount decimal.Decimal, kind EntryKind, ref Reference) (*LedgerEntry, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Ledger amount must be positive")
	}
	if !kind.IsValid() {
		return nil, shared.NewValidationError("INVALID_ENTRY_KIND", "Invalid ledger entry kind")
	}
	if !ref.Type.IsValid() {
		return nil, shared.NewValidationError("INVALID_REFERENCE", "Invalid ledger reference type")
	}
	return &LedgerEntry{
		ID:        uuid.New(),
		TenantID:  actor.TenantID,
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
		Reference: ref,
		ActorID:   actor.ActorID,
		CreatedAt: time.Now(),
	}, nil
}

// SignedAmount is +Amount for a debit and -Amount for a credit
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Kind == EntryKindDebit {
		return e.Amount
	}
	return e.Amount.Neg()
}

// IsReversal returns true if the entry corrects another entry
func (e *LedgerEntry) IsReversal() bool {
	return e.ReversesEntryID != nil
}
