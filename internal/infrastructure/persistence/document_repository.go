package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/document"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormShipmentRepository implements document.ShipmentRepository using GORM
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewGormShipmentRepository creates a new GormShipmentRepository
func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

// FindByIDForTenant finds a shipment document by ID within a tenant
func (r *GormShipmentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*document.ShipmentDocument, error) {
	var m models.ShipmentDocumentModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Create inserts a shipment document
func (r *GormShipmentRepository) Create(ctx context.Context, doc *document.ShipmentDocument) error {
	return r.db.WithContext(ctx).Create(models.ShipmentDocumentModelFromDomain(doc)).Error
}

// SaveWithLock writes the issuance fields under a version check
func (r *GormShipmentRepository) SaveWithLock(ctx context.Context, doc *document.ShipmentDocument) error {
	m := models.ShipmentDocumentModelFromDomain(doc)
	result := r.db.WithContext(ctx).
		Model(&models.ShipmentDocumentModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", doc.ID, doc.TenantID, doc.Version).
		Updates(map[string]any{
			"state":      m.State,
			"number":     m.Number,
			"evidence":   m.Evidence,
			"issued_at":  m.IssuedAt,
			"issued_by":  m.IssuedBy,
			"version":    doc.Version + 1,
			"updated_at": doc.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}
	doc.Version++
	return nil
}

// GormInvoiceRepository implements document.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByIDForTenant loads an invoice with its lines in position order
func (r *GormInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*document.Invoice, error) {
	var m models.InvoiceModel
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

// Create inserts an invoice and its lines
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *document.Invoice) error {
	return r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(inv)).Error
}

// SaveWithLock writes the header under a version check, then every line's quantity and amount
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, inv *document.Invoice) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", inv.ID, inv.TenantID, inv.Version).
		Updates(map[string]any{
			"state":      string(inv.State),
			"number":     inv.Number,
			"total":      inv.Total,
			"issued_at":  inv.IssuedAt,
			"issued_by":  inv.IssuedBy,
			"version":    inv.Version + 1,
			"updated_at": inv.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}

	for i := range inv.Lines {
		line := &inv.Lines[i]
		err := r.db.WithContext(ctx).
			Model(&models.InvoiceLineModel{}).
			Where("id = ? AND invoice_id = ?", line.ID, inv.ID).
			Updates(map[string]any{
				"quantity": line.Quantity,
				"amount":   line.Amount,
			}).Error
		if err != nil {
			return err
		}
	}

	inv.Version++
	return nil
}

// GormDocumentNumbering hands out numbers from the document_sequences table.
// It runs on the caller's transaction, so a rolled back confirmation releases its number.
type GormDocumentNumbering struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormDocumentNumbering creates a new GormDocumentNumbering
func NewGormDocumentNumbering(db *gorm.DB) *GormDocumentNumbering {
	return &GormDocumentNumbering{db: db, now: time.Now}
}

// Next returns the next number of the series, formatted PREFIX-YEAR-NNNNNN
func (n *GormDocumentNumbering) Next(ctx context.Context, tenantID uuid.UUID, kind document.Kind) (string, error) {
	year := n.now().UTC().Year()

	var seq models.DocumentSequenceModel
	err := n.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ? AND year = ?", tenantID, string(kind), year).
		First(&seq).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		seq = models.DocumentSequenceModel{
			TenantID:  tenantID,
			Kind:      string(kind),
			Year:      year,
			LastValue: 1,
			Version:   1,
			UpdatedAt: n.now(),
		}
		if err := n.db.WithContext(ctx).Create(&seq).Error; err != nil {
			if sqlState(err) == sqlStateUniqueViolation {
				return "", shared.ErrConcurrentModification
			}
			return "", err
		}
	case err != nil:
		return "", err
	default:
		result := n.db.WithContext(ctx).
			Model(&models.DocumentSequenceModel{}).
			Where("tenant_id = ? AND kind = ? AND year = ? AND version = ?", tenantID, string(kind), year, seq.Version).
			Updates(map[string]any{
				"last_value": seq.LastValue + 1,
				"version":    seq.Version + 1,
				"updated_at": n.now(),
			})
		if result.Error != nil {
			return "", result.Error
		}
		if result.RowsAffected == 0 {
			return "", shared.ErrConcurrentModification
		}
		seq.LastValue++
	}

	return fmt.Sprintf("%s-%d-%06d", kind.Prefix(), year, seq.LastValue), nil
}

var (
	_ document.ShipmentRepository = (*GormShipmentRepository)(nil)
	_ document.InvoiceRepository  = (*GormInvoiceRepository)(nil)
	_ document.Numbering          = (*GormDocumentNumbering)(nil)
)
