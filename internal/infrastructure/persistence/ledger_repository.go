package persistence

import (
	"context"
	"errors"

	"github.com/erp/fulfillment/internal/domain/finance"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormAccountRepository implements finance.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByIDForTenant finds an account by ID within a tenant
func (r *GormAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Account, error) {
	return r.first(ctx, "tenant_id = ? AND id = ?", tenantID, id)
}

// FindByParty finds a party's account of the given kind
func (r *GormAccountRepository) FindByParty(ctx context.Context, tenantID, partyID uuid.UUID, kind finance.AccountKind) (*finance.Account, error) {
	return r.first(ctx, "tenant_id = ? AND party_id = ? AND kind = ?", tenantID, partyID, string(kind))
}

func (r *GormAccountRepository) first(ctx context.Context, query string, args ...any) (*finance.Account, error) {
	var m models.AccountModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Create inserts an account
func (r *GormAccountRepository) Create(ctx context.Context, account *finance.Account) error {
	return r.db.WithContext(ctx).Create(models.AccountModelFromDomain(account)).Error
}

// SaveWithLock writes the cached balance under a version check
func (r *GormAccountRepository) SaveWithLock(ctx context.Context, account *finance.Account) error {
	result := r.db.WithContext(ctx).
		Model(&models.AccountModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", account.ID, account.TenantID, account.Version).
		Updates(map[string]any{
			"cached_balance": account.CachedBalance,
			"version":        account.Version + 1,
			"updated_at":     account.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}
	account.Version++
	return nil
}

// GormLedgerEntryRepository implements finance.LedgerEntryRepository using GORM.
// Entries are insert-only.
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

// Create appends an entry
func (r *GormLedgerEntryRepository) Create(ctx context.Context, entry *finance.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(models.LedgerEntryModelFromDomain(entry)).Error
}

// FindByIDForTenant finds an entry by ID within a tenant
func (r *GormLedgerEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.LedgerEntry, error) {
	return r.first(ctx, "tenant_id = ? AND id = ?", tenantID, id)
}

// FindReversalOf finds the entry that reverses id
func (r *GormLedgerEntryRepository) FindReversalOf(ctx context.Context, tenantID, id uuid.UUID) (*finance.LedgerEntry, error) {
	return r.first(ctx, "tenant_id = ? AND reverses_entry_id = ?", tenantID, id)
}

func (r *GormLedgerEntryRepository) first(ctx context.Context, query string, args ...any) (*finance.LedgerEntry, error) {
	var m models.LedgerEntryModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	entry := m.ToDomain()
	return &entry, nil
}

// FindByAccount returns an account's entries in posting order
func (r *GormLedgerEntryRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]finance.LedgerEntry, error) {
	var rows []models.LedgerEntryModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]finance.LedgerEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// SignedSum returns debits minus credits in decimal arithmetic
func (r *GormLedgerEntryRepository) SignedSum(ctx context.Context, tenantID, accountID uuid.UUID) (decimal.Decimal, error) {
	entries, err := r.FindByAccount(ctx, tenantID, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for i := range entries {
		sum = sum.Add(entries[i].SignedAmount())
	}
	return sum, nil
}

var (
	_ finance.AccountRepository     = (*GormAccountRepository)(nil)
	_ finance.LedgerEntryRepository = (*GormLedgerEntryRepository)(nil)
)
