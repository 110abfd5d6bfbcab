package persistence

import (
	"context"
	"database/sql"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/domain/document"
	"github.com/erp/fulfillment/internal/domain/finance"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormTransactionScope runs confirmations in SERIALIZABLE transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn in one serializable transaction. It commits when fn returns nil
// and rolls back otherwise. Serialization failures and deadlocks, including those
// raised at commit, come back as shared.ErrConcurrentModification.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appfulfillment.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	return translateError(err)
}

// gormTransactionalRepositories builds every repository over the same *gorm.DB transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Orders() fulfillment.OrderRepository {
	return NewGormFulfillmentOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) SaleOrders() fulfillment.SaleOrderRepository {
	return NewGormSaleOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) Shipments() document.ShipmentRepository {
	return NewGormShipmentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Invoices() document.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) Numbering() document.Numbering {
	return NewGormDocumentNumbering(r.tx)
}

func (r *gormTransactionalRepositories) Levels() inventory.LevelRepository {
	return NewGormInventoryLevelRepository(r.tx)
}

func (r *gormTransactionalRepositories) Movements() inventory.MovementRepository {
	return NewGormInventoryMovementRepository(r.tx)
}

func (r *gormTransactionalRepositories) Accounts() finance.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormTransactionalRepositories) Entries() finance.LedgerEntryRepository {
	return NewGormLedgerEntryRepository(r.tx)
}

func (r *gormTransactionalRepositories) Catalog() appfulfillment.InventoryCatalog {
	return NewGormInventoryCatalog(r.tx)
}

func (r *gormTransactionalRepositories) ChartOfAccounts() appfulfillment.ChartOfAccounts {
	return NewGormChartOfAccounts(r.tx)
}

var (
	_ appfulfillment.TransactionScope          = (*GormTransactionScope)(nil)
	_ appfulfillment.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
