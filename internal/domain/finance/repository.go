package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository persists accounts
type AccountRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
	FindByParty(ctx context.Context, tenantID, partyID uuid.UUID, kind AccountKind) (*Account, error)
	Create(ctx context.Context, account *Account) error
	// SaveWithLock writes the account if its stored version still equals account.Version
	SaveWithLock(ctx context.Context, account *Account) error
}

// LedgerEntryRepository persists the append-only entry log
type LedgerEntryRepository interface {
	Create(ctx context.Context, entry *LedgerEntry) error
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*LedgerEntry, error)
	// FindReversalOf returns the entry reversing id, shared.ErrNotFound when none
	FindReversalOf(ctx context.Context, tenantID, id uuid.UUID) (*LedgerEntry, error)
	FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]LedgerEntry, error)
	// SignedSum returns sum(debits) - sum(credits) for an account
	SignedSum(ctx context.Context, tenantID, accountID uuid.UUID) (decimal.Decimal, error)
}
