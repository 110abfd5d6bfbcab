package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for a ledger Account.
type AccountModel struct {
	TenantAggregateModel
	PartyID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Code          string          `gorm:"type:varchar(50);not null"`
	Kind          string          `gorm:"type:varchar(20);not null"`
	CachedBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account.
func (m *AccountModel) ToDomain() *finance.Account {
	return &finance.Account{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		PartyID:             m.PartyID,
		Code:                m.Code,
		Kind:                finance.AccountKind(m.Kind),
		CachedBalance:       m.CachedBalance,
	}
}

// AccountModelFromDomain creates a persistence model from a domain Account.
func AccountModelFromDomain(a *finance.Account) *AccountModel {
	m := &AccountModel{
		PartyID:       a.PartyID,
		Code:          a.Code,
		Kind:          string(a.Kind),
		CachedBalance: a.CachedBalance,
	}
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	return m
}

// LedgerEntryModel is the persistence model for an immutable LedgerEntry.
type LedgerEntryModel struct {
	ID                     uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID               uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind                   string          `gorm:"type:varchar(10);not null"`
	Amount                 decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ReferenceType          string          `gorm:"type:varchar(20);not null"`
	ReferenceID            uuid.UUID       `gorm:"type:uuid;not null"`
	ReferenceNumber        string          `gorm:"type:varchar(50)"`
	ReferenceTransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReversesEntryID        *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	Memo                   string          `gorm:"type:varchar(500)"`
	ActorID                uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt              time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ToDomain converts the persistence model to a domain LedgerEntry.
func (m *LedgerEntryModel) ToDomain() finance.LedgerEntry {
	return finance.LedgerEntry{
		ID:        m.ID,
		TenantID:  m.TenantID,
		AccountID: m.AccountID,
		Kind:      finance.EntryKind(m.Kind),
		Amount:    m.Amount,
		Reference: finance.Reference{
			Type:          finance.ReferenceType(m.ReferenceType),
			ID:            m.ReferenceID,
			Number:        m.ReferenceNumber,
			TransactionID: m.ReferenceTransactionID,
		},
		ReversesEntryID: m.ReversesEntryID,
		Memo:            m.Memo,
		ActorID:         m.ActorID,
		CreatedAt:       m.CreatedAt,
	}
}

// LedgerEntryModelFromDomain creates a persistence model from a domain LedgerEntry.
func LedgerEntryModelFromDomain(e *finance.LedgerEntry) *LedgerEntryModel {
	return &LedgerEntryModel{
		ID:                     e.ID,
		TenantID:               e.TenantID,
		AccountID:              e.AccountID,
		Kind:                   string(e.Kind),
		Amount:                 e.Amount,
		ReferenceType:          string(e.Reference.Type),
		ReferenceID:            e.Reference.ID,
		ReferenceNumber:        e.Reference.Number,
		ReferenceTransactionID: e.Reference.TransactionID,
		ReversesEntryID:        e.ReversesEntryID,
		Memo:                   e.Memo,
		ActorID:                e.ActorID,
		CreatedAt:              e.CreatedAt,
	}
}
