package document

import (
	"context"

	"github.com/google/uuid"
)

// ShipmentRepository persists shipment documents
type ShipmentRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ShipmentDocument, error)
	Create(ctx context.Context, doc *ShipmentDocument) error
	SaveWithLock(ctx context.Context, doc *ShipmentDocument) error
}

// InvoiceRepository persists invoices and their lines
type InvoiceRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	Create(ctx context.Context, inv *Invoice) error
	// SaveWithLock writes the invoice header and all lines under a version check
	SaveWithLock(ctx context.Context, inv *Invoice) error
}

// Numbering hands out the next human-readable number for a document series
type Numbering interface {
	Next(ctx context.Context, tenantID uuid.UUID, kind Kind) (string, error)
}
