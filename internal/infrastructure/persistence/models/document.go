package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/document"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShipmentDocumentModel is the persistence model for a shipment document.
type ShipmentDocumentModel struct {
	TenantAggregateModel
	FulfillmentOrderID uuid.UUID `gorm:"type:uuid;not null;index"`
	State              string    `gorm:"type:varchar(20);not null"`
	Number             string    `gorm:"type:varchar(50)"`
	Evidence           *string   `gorm:"type:text"`
	IssuedAt           *time.Time
	IssuedBy           *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ShipmentDocumentModel) TableName() string {
	return "shipment_documents"
}

// ToDomain converts the persistence model to a domain ShipmentDocument.
func (m *ShipmentDocumentModel) ToDomain() *document.ShipmentDocument {
	return &document.ShipmentDocument{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		FulfillmentOrderID:  m.FulfillmentOrderID,
		State:               document.State(m.State),
		Number:              m.Number,
		Evidence:            jsonBytes(m.Evidence),
		IssuedAt:            m.IssuedAt,
		IssuedBy:            m.IssuedBy,
	}
}

// ShipmentDocumentModelFromDomain creates a persistence model from a domain ShipmentDocument.
func ShipmentDocumentModelFromDomain(d *document.ShipmentDocument) *ShipmentDocumentModel {
	m := &ShipmentDocumentModel{
		FulfillmentOrderID: d.FulfillmentOrderID,
		State:              string(d.State),
		Number:             d.Number,
		Evidence:           optionalJSON(d.Evidence),
		IssuedAt:           d.IssuedAt,
		IssuedBy:           d.IssuedBy,
	}
	m.FromDomainTenantAggregateRoot(d.TenantAggregateRoot)
	return m
}

// InvoiceModel is the persistence model for the Invoice aggregate.
type InvoiceModel struct {
	TenantAggregateModel
	FulfillmentOrderID uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerPartyID    uuid.UUID       `gorm:"type:uuid;not null"`
	State              string          `gorm:"type:varchar(20);not null"`
	Number             string          `gorm:"type:varchar(50)"`
	Total              decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	IssuedAt           *time.Time
	IssuedBy           *uuid.UUID         `gorm:"type:uuid"`
	Lines              []InvoiceLineModel `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *document.Invoice {
	inv := &document.Invoice{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		FulfillmentOrderID:  m.FulfillmentOrderID,
		CustomerPartyID:     m.CustomerPartyID,
		State:               document.State(m.State),
		Number:              m.Number,
		Total:               m.Total,
		IssuedAt:            m.IssuedAt,
		IssuedBy:            m.IssuedBy,
		Lines:               make([]document.InvoiceLine, len(m.Lines)),
	}
	for i := range m.Lines {
		inv.Lines[i] = m.Lines[i].ToDomain()
	}
	return inv
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *document.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		FulfillmentOrderID: inv.FulfillmentOrderID,
		CustomerPartyID:    inv.CustomerPartyID,
		State:              string(inv.State),
		Number:             inv.Number,
		Total:              inv.Total,
		IssuedAt:           inv.IssuedAt,
		IssuedBy:           inv.IssuedBy,
		Lines:              make([]InvoiceLineModel, len(inv.Lines)),
	}
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	for i := range inv.Lines {
		m.Lines[i] = InvoiceLineModelFromDomain(&inv.Lines[i], inv.TenantID, i+1)
	}
	return m
}

// InvoiceLineModel is the persistence model for an invoice line.
type InvoiceLineModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position          int             `gorm:"not null"`
	FulfillmentLineID uuid.UUID       `gorm:"type:uuid;not null"`
	Description       string          `gorm:"type:varchar(255)"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount          decimal.Decimal `gorm:"type:decimal(5,4);not null;default:0"`
	TaxRate           decimal.Decimal `gorm:"type:decimal(5,4);not null;default:0"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (InvoiceLineModel) TableName() string {
	return "invoice_lines"
}

// ToDomain converts the persistence model to a domain InvoiceLine.
func (m *InvoiceLineModel) ToDomain() document.InvoiceLine {
	return document.InvoiceLine{
		ID:                m.ID,
		InvoiceID:         m.InvoiceID,
		FulfillmentLineID: m.FulfillmentLineID,
		Description:       m.Description,
		Quantity:          m.Quantity,
		UnitPrice:         m.UnitPrice,
		Discount:          m.Discount,
		TaxRate:           m.TaxRate,
		Amount:            m.Amount,
	}
}

// InvoiceLineModelFromDomain creates a persistence model from a domain InvoiceLine.
func InvoiceLineModelFromDomain(l *document.InvoiceLine, tenantID uuid.UUID, position int) InvoiceLineModel {
	return InvoiceLineModel{
		ID:                l.ID,
		TenantID:          tenantID,
		InvoiceID:         l.InvoiceID,
		Position:          position,
		FulfillmentLineID: l.FulfillmentLineID,
		Description:       l.Description,
		Quantity:          l.Quantity,
		UnitPrice:         l.UnitPrice,
		Discount:          l.Discount,
		TaxRate:           l.TaxRate,
		Amount:            l.Amount,
	}
}

// DocumentSequenceModel holds the last number handed out per tenant, series and year.
type DocumentSequenceModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind      string    `gorm:"type:varchar(20);primaryKey"`
	Year      int       `gorm:"primaryKey"`
	LastValue int64     `gorm:"not null;default:0"`
	Version   int       `gorm:"not null;default:1"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentSequenceModel) TableName() string {
	return "document_sequences"
}
