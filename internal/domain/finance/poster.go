package finance

import (
	"context"
	"errors"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrAlreadyReversed   = shared.NewStateConflictError("ENTRY_ALREADY_REVERSED", "Ledger entry has already been reversed")
	ErrReverseOfReversal = shared.NewStateConflictError("ENTRY_IS_REVERSAL", "A reversal entry cannot be reversed")
)

// Poster appends ledger entries and keeps the account's cached balance in step.
// Build it from transactional repositories so the entry and balance commit together.
type Poster struct {
	accounts AccountRepository
	entries  LedgerEntryRepository
}

// NewPoster creates a Poster
func NewPoster(accounts AccountRepository, entries LedgerEntryRepository) *Poster {
	return &Poster{accounts: accounts, entries: entries}
}

// Post appends an entry and moves the cached balance by its signed amount
func (p *Poster) Post(ctx context.Context, actor shared.Actor, accountID uuid.UUID, amount decimal.Decimal, kind EntryKind, ref Reference) (*LedgerEntry, error) {
	entry, err := NewLedgerEntry(actor, accountID, amount, kind, ref)
	if err != nil {
		return nil, err
	}
	if err := p.write(ctx, actor, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Reverse posts the opposite side of an existing entry, referencing it
func (p *Poster) Reverse(ctx context.Context, actor shared.Actor, entryID uuid.UUID, memo string) (*LedgerEntry, error) {
	original, err := p.entries.FindByIDForTenant(ctx, actor.TenantID, entryID)
	if err != nil {
		return nil, err
	}
	if original.IsReversal() {
		return nil, ErrReverseOfReversal
	}
	_, err = p.entries.FindReversalOf(ctx, actor.TenantID, entryID)
	switch {
	case err == nil:
		return nil, ErrAlreadyReversed
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}

	entry, err := NewLedgerEntry(actor, original.AccountID, original.Amount, original.Kind.Opposite(), Reference{
		Type:          ReferenceTypeReversal,
		ID:            original.ID,
		Number:        original.Reference.Number,
		TransactionID: uuid.New(),
	})
	if err != nil {
		return nil, err
	}
	entry.ReversesEntryID = &original.ID
	entry.Memo = memo

	if err := p.write(ctx, actor, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (p *Poster) write(ctx context.Context, actor shared.Actor, entry *LedgerEntry) error {
	account, err := p.accounts.FindByIDForTenant(ctx, actor.TenantID, entry.AccountID)
	if err != nil {
		return err
	}
	if err := p.entries.Create(ctx, entry); err != nil {
		return err
	}
	account.apply(entry)
	return p.accounts.SaveWithLock(ctx, account)
}
