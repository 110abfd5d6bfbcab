// Package finance holds customer accounts and their append-only ledger.
package finance

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountKind classifies an account in the chart of accounts
type AccountKind string

const (
	AccountKindReceivable AccountKind = "RECEIVABLE"
	AccountKindPayable    AccountKind = "PAYABLE"
)

// IsValid returns true if the account kind is valid
func (k AccountKind) IsValid() bool {
	switch k {
	case AccountKindReceivable, AccountKindPayable:
		return true
	}
	return false
}

// Account is a party's ledger account.
// CachedBalance is derived state: it must always equal the signed sum of the account's entries.
type Account struct {
	shared.TenantAggregateRoot
	PartyID       uuid.UUID
	Code          string
	Kind          AccountKind
	CachedBalance decimal.Decimal
}

// NewAccount creates an empty account for a party
func NewAccount(tenantID, partyID uuid.UUID, code string, kind AccountKind) (*Account, error) {
	if partyID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PARTY", "Party ID cannot be empty")
	}
	if code == "" {
		return nil, shared.NewValidationError("INVALID_ACCOUNT_CODE", "Account code cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewValidationError("INVALID_ACCOUNT_KIND", "Invalid account kind")
	}
	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PartyID:             partyID,
		Code:                code,
		Kind:                kind,
		CachedBalance:       decimal.Zero,
	}, nil
}

// apply moves the cached balance by one entry
func (a *Account) apply(entry *LedgerEntry) {
	a.CachedBalance = a.CachedBalance.Add(entry.SignedAmount())
	a.Touch()
}
