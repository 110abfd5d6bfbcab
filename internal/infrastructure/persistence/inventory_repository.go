package persistence

import (
	"context"
	"errors"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormInventoryLevelRepository implements inventory.LevelRepository using GORM
type GormInventoryLevelRepository struct {
	db *gorm.DB
}

// NewGormInventoryLevelRepository creates a new GormInventoryLevelRepository
func NewGormInventoryLevelRepository(db *gorm.DB) *GormInventoryLevelRepository {
	return &GormInventoryLevelRepository{db: db}
}

// FindByIDForTenant finds a level by item ID within a tenant
func (r *GormInventoryLevelRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Level, error) {
	var m models.InventoryLevelModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Create inserts a level
func (r *GormInventoryLevelRepository) Create(ctx context.Context, level *inventory.Level) error {
	return r.db.WithContext(ctx).Create(models.InventoryLevelModelFromDomain(level)).Error
}

// SaveWithLock writes the quantity under a version check
func (r *GormInventoryLevelRepository) SaveWithLock(ctx context.Context, level *inventory.Level) error {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryLevelModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", level.ID, level.TenantID, level.Version).
		Updates(map[string]any{
			"quantity":   level.Quantity,
			"version":    level.Version + 1,
			"updated_at": level.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}
	level.Version++
	return nil
}

// GormInventoryMovementRepository implements inventory.MovementRepository using GORM.
// Movements are insert-only.
type GormInventoryMovementRepository struct {
	db *gorm.DB
}

// NewGormInventoryMovementRepository creates a new GormInventoryMovementRepository
func NewGormInventoryMovementRepository(db *gorm.DB) *GormInventoryMovementRepository {
	return &GormInventoryMovementRepository{db: db}
}

// Create appends a movement
func (r *GormInventoryMovementRepository) Create(ctx context.Context, movement *inventory.Movement) error {
	return r.db.WithContext(ctx).Create(models.InventoryMovementModelFromDomain(movement)).Error
}

// FindByTransaction returns the movements of one causal transaction in insertion order
func (r *GormInventoryMovementRepository) FindByTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) ([]inventory.Movement, error) {
	var rows []models.InventoryMovementModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND causal_transaction_id = ?", tenantID, transactionID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]inventory.Movement, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// SumDeltas adds the item's deltas in decimal arithmetic
func (r *GormInventoryMovementRepository) SumDeltas(ctx context.Context, tenantID, itemID uuid.UUID) (decimal.Decimal, error) {
	var deltas []decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.InventoryMovementModel{}).
		Where("tenant_id = ? AND item_id = ?", tenantID, itemID).
		Pluck("delta", &deltas).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, deltas...), nil
}

var (
	_ inventory.LevelRepository    = (*GormInventoryLevelRepository)(nil)
	_ inventory.MovementRepository = (*GormInventoryMovementRepository)(nil)
)
