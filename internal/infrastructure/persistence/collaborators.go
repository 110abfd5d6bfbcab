package persistence

import (
	"context"
	"errors"

	"github.com/erp/fulfillment/internal/domain/finance"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInventoryCatalog answers item existence from inventory_levels
type GormInventoryCatalog struct {
	db *gorm.DB
}

// NewGormInventoryCatalog creates a new GormInventoryCatalog
func NewGormInventoryCatalog(db *gorm.DB) *GormInventoryCatalog {
	return &GormInventoryCatalog{db: db}
}

// Exists reports whether the tenant stocks the item
func (c *GormInventoryCatalog) Exists(ctx context.Context, tenantID, itemID uuid.UUID) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Model(&models.InventoryLevelModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, itemID).
		Count(&count).Error
	return count > 0, err
}

// GormChartOfAccounts resolves party accounts from the accounts table
type GormChartOfAccounts struct {
	accounts *GormAccountRepository
}

// NewGormChartOfAccounts creates a new GormChartOfAccounts
func NewGormChartOfAccounts(db *gorm.DB) *GormChartOfAccounts {
	return &GormChartOfAccounts{accounts: NewGormAccountRepository(db)}
}

// ReceivableAccount returns the party's receivable account ID, shared.ErrNotFound when none exists
func (c *GormChartOfAccounts) ReceivableAccount(ctx context.Context, tenantID, partyID uuid.UUID) (uuid.UUID, error) {
	account, err := c.accounts.FindByParty(ctx, tenantID, partyID, finance.AccountKindReceivable)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, shared.ErrNotFound
		}
		return uuid.Nil, err
	}
	return account.ID, nil
}
