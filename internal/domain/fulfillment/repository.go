package fulfillment

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository persists fulfillment orders with their lines
type OrderRepository interface {
	// FindByIDForTenant loads the order and its lines, shared.ErrNotFound when absent
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)
	// FindByParent loads every order delivering against a sale order, oldest first
	FindByParent(ctx context.Context, tenantID, saleOrderID uuid.UUID) ([]*Order, error)
	Create(ctx context.Context, order *Order) error
	// SaveWithLock writes the order header and lines under a version check
	SaveWithLock(ctx context.Context, order *Order) error
}

// SaleOrderRepository persists parent sale orders
type SaleOrderRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*SaleOrder, error)
	Create(ctx context.Context, order *SaleOrder) error
	SaveWithLock(ctx context.Context, order *SaleOrder) error
}
