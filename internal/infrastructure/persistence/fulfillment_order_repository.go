package persistence

import (
	"context"
	"errors"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFulfillmentOrderRepository implements fulfillment.OrderRepository using GORM
type GormFulfillmentOrderRepository struct {
	db *gorm.DB
}

// NewGormFulfillmentOrderRepository creates a new GormFulfillmentOrderRepository
func NewGormFulfillmentOrderRepository(db *gorm.DB) *GormFulfillmentOrderRepository {
	return &GormFulfillmentOrderRepository{db: db}
}

// FindByIDForTenant loads an order with its lines in position order
func (r *GormFulfillmentOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fulfillment.Order, error) {
	var m models.FulfillmentOrderModel
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByParent loads the orders of one sale order with their lines
func (r *GormFulfillmentOrderRepository) FindByParent(ctx context.Context, tenantID, saleOrderID uuid.UUID) ([]*fulfillment.Order, error) {
	var rows []models.FulfillmentOrderModel
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("tenant_id = ? AND parent_sale_order_id = ?", tenantID, saleOrderID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	orders := make([]*fulfillment.Order, len(rows))
	for i := range rows {
		orders[i] = rows[i].ToDomain()
	}
	return orders, nil
}

// Create inserts the order and its lines
func (r *GormFulfillmentOrderRepository) Create(ctx context.Context, order *fulfillment.Order) error {
	return r.db.WithContext(ctx).Create(models.FulfillmentOrderModelFromDomain(order)).Error
}

// SaveWithLock writes the header under a version check, then the line actuals
func (r *GormFulfillmentOrderRepository) SaveWithLock(ctx context.Context, order *fulfillment.Order) error {
	result := r.db.WithContext(ctx).
		Model(&models.FulfillmentOrderModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", order.ID, order.TenantID, order.Version).
		Updates(map[string]any{
			"state":        string(order.State),
			"invoice_id":   order.InvoiceID,
			"confirmed_at": order.ConfirmedAt,
			"confirmed_by": order.ConfirmedBy,
			"version":      order.Version + 1,
			"updated_at":   order.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}

	for i := range order.Lines {
		line := &order.Lines[i]
		if !line.IsConfirmed() {
			continue
		}
		err := r.db.WithContext(ctx).
			Model(&models.FulfillmentLineModel{}).
			Where("id = ? AND order_id = ?", line.ID, order.ID).
			Updates(map[string]any{
				"actual_qty":      *line.ActualQty,
				"variance_reason": line.VarianceReason,
			}).Error
		if err != nil {
			return err
		}
	}

	order.Version++
	return nil
}

// GormSaleOrderRepository implements fulfillment.SaleOrderRepository using GORM
type GormSaleOrderRepository struct {
	db *gorm.DB
}

// NewGormSaleOrderRepository creates a new GormSaleOrderRepository
func NewGormSaleOrderRepository(db *gorm.DB) *GormSaleOrderRepository {
	return &GormSaleOrderRepository{db: db}
}

// FindByIDForTenant finds a sale order by ID within a tenant
func (r *GormSaleOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fulfillment.SaleOrder, error) {
	var m models.SaleOrderModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Create inserts a sale order
func (r *GormSaleOrderRepository) Create(ctx context.Context, order *fulfillment.SaleOrder) error {
	return r.db.WithContext(ctx).Create(models.SaleOrderModelFromDomain(order)).Error
}

// SaveWithLock writes the state under a version check
func (r *GormSaleOrderRepository) SaveWithLock(ctx context.Context, order *fulfillment.SaleOrder) error {
	result := r.db.WithContext(ctx).
		Model(&models.SaleOrderModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", order.ID, order.TenantID, order.Version).
		Updates(map[string]any{
			"state":      string(order.State),
			"version":    order.Version + 1,
			"updated_at": order.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}
	order.Version++
	return nil
}

var (
	_ fulfillment.OrderRepository     = (*GormFulfillmentOrderRepository)(nil)
	_ fulfillment.SaleOrderRepository = (*GormSaleOrderRepository)(nil)
)
