// Package fulfillment confirms fulfillment orders: one idempotent call that records
// delivered quantities, moves stock, issues documents, posts the receivable and
// reconciles the parent sale order in a single transaction.
package fulfillment

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/document"
	"github.com/erp/fulfillment/internal/domain/finance"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// TransactionScope provides transactional access to every repository a confirmation touches.
type TransactionScope interface {
	// Execute runs fn within one serializable database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	Orders() fulfillment.OrderRepository
	SaleOrders() fulfillment.SaleOrderRepository
	Shipments() document.ShipmentRepository
	Invoices() document.InvoiceRepository
	// Numbering allocates document numbers; a rollback releases them
	Numbering() document.Numbering
	Levels() inventory.LevelRepository
	Movements() inventory.MovementRepository
	Accounts() finance.AccountRepository
	Entries() finance.LedgerEntryRepository
	Catalog() InventoryCatalog
	ChartOfAccounts() ChartOfAccounts
}

// InventoryCatalog answers whether an inventory item exists for a tenant
type InventoryCatalog interface {
	Exists(ctx context.Context, tenantID, itemID uuid.UUID) (bool, error)
}

// ChartOfAccounts resolves the ledger account that receives a party's invoices
type ChartOfAccounts interface {
	// ReceivableAccount returns shared.ErrNotFound when the party has no receivable account
	ReceivableAccount(ctx context.Context, tenantID, partyID uuid.UUID) (uuid.UUID, error)
}

// Notifier hands committed events to downstream consumers.
// Publish must not block on the transport.
type Notifier interface {
	Publish(ctx context.Context, event shared.DomainEvent) error
}

type noopNotifier struct{}

func (noopNotifier) Publish(context.Context, shared.DomainEvent) error { return nil }
