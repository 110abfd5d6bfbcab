package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FulfillmentOrderModel is the persistence model for the fulfillment Order aggregate.
type FulfillmentOrderModel struct {
	TenantAggregateModel
	Number             string     `gorm:"type:varchar(50);not null"`
	ParentSaleOrderID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	ShipmentDocumentID uuid.UUID  `gorm:"type:uuid;not null"`
	InvoiceID          *uuid.UUID `gorm:"type:uuid"`
	State              string     `gorm:"type:varchar(20);not null"`
	ConfirmedAt        *time.Time
	ConfirmedBy        *uuid.UUID             `gorm:"type:uuid"`
	Lines              []FulfillmentLineModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (FulfillmentOrderModel) TableName() string {
	return "fulfillment_orders"
}

// ToDomain converts the persistence model to a domain Order.
func (m *FulfillmentOrderModel) ToDomain() *fulfillment.Order {
	order := &fulfillment.Order{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Number:              m.Number,
		ParentSaleOrderID:   m.ParentSaleOrderID,
		ShipmentDocumentID:  m.ShipmentDocumentID,
		InvoiceID:           m.InvoiceID,
		State:               fulfillment.OrderState(m.State),
		ConfirmedAt:         m.ConfirmedAt,
		ConfirmedBy:         m.ConfirmedBy,
		Lines:               make([]fulfillment.Line, len(m.Lines)),
	}
	for i := range m.Lines {
		order.Lines[i] = m.Lines[i].ToDomain()
	}
	return order
}

// FulfillmentOrderModelFromDomain creates a persistence model from a domain Order.
// Line positions follow the order of o.Lines.
func FulfillmentOrderModelFromDomain(o *fulfillment.Order) *FulfillmentOrderModel {
	m := &FulfillmentOrderModel{
		Number:             o.Number,
		ParentSaleOrderID:  o.ParentSaleOrderID,
		ShipmentDocumentID: o.ShipmentDocumentID,
		InvoiceID:          o.InvoiceID,
		State:              string(o.State),
		ConfirmedAt:        o.ConfirmedAt,
		ConfirmedBy:        o.ConfirmedBy,
		Lines:              make([]FulfillmentLineModel, len(o.Lines)),
	}
	m.FromDomainTenantAggregateRoot(o.TenantAggregateRoot)
	for i := range o.Lines {
		m.Lines[i] = FulfillmentLineModelFromDomain(&o.Lines[i], o.TenantID, i+1)
	}
	return m
}

// FulfillmentLineModel is the persistence model for a fulfillment order line.
type FulfillmentLineModel struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID        `gorm:"type:uuid;not null;index"`
	OrderID         uuid.UUID        `gorm:"type:uuid;not null;index"`
	Position        int              `gorm:"not null"`
	InventoryItemID uuid.UUID        `gorm:"type:uuid;not null"`
	Description     string           `gorm:"type:varchar(255)"`
	PlannedQty      decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	ActualQty       *decimal.Decimal `gorm:"type:decimal(18,4)"`
	VarianceReason  string           `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (FulfillmentLineModel) TableName() string {
	return "fulfillment_lines"
}

// ToDomain converts the persistence model to a domain Line.
func (m *FulfillmentLineModel) ToDomain() fulfillment.Line {
	return fulfillment.Line{
		ID:              m.ID,
		OrderID:         m.OrderID,
		InventoryItemID: m.InventoryItemID,
		Description:     m.Description,
		PlannedQty:      m.PlannedQty,
		ActualQty:       m.ActualQty,
		VarianceReason:  m.VarianceReason,
	}
}

// FulfillmentLineModelFromDomain creates a persistence model from a domain Line.
func FulfillmentLineModelFromDomain(l *fulfillment.Line, tenantID uuid.UUID, position int) FulfillmentLineModel {
	return FulfillmentLineModel{
		ID:              l.ID,
		TenantID:        tenantID,
		OrderID:         l.OrderID,
		Position:        position,
		InventoryItemID: l.InventoryItemID,
		Description:     l.Description,
		PlannedQty:      l.PlannedQty,
		ActualQty:       l.ActualQty,
		VarianceReason:  l.VarianceReason,
	}
}

// SaleOrderModel is the persistence model for the parent SaleOrder aggregate.
type SaleOrderModel struct {
	TenantAggregateModel
	Number          string    `gorm:"type:varchar(50);not null"`
	CustomerPartyID uuid.UUID `gorm:"type:uuid;not null"`
	State           string    `gorm:"type:varchar(30);not null"`
}

// TableName returns the table name for GORM
func (SaleOrderModel) TableName() string {
	return "sale_orders"
}

// ToDomain converts the persistence model to a domain SaleOrder.
func (m *SaleOrderModel) ToDomain() *fulfillment.SaleOrder {
	return &fulfillment.SaleOrder{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Number:              m.Number,
		CustomerPartyID:     m.CustomerPartyID,
		State:               fulfillment.ParentOrderState(m.State),
	}
}

// SaleOrderModelFromDomain creates a persistence model from a domain SaleOrder.
func SaleOrderModelFromDomain(s *fulfillment.SaleOrder) *SaleOrderModel {
	m := &SaleOrderModel{
		Number:          s.Number,
		CustomerPartyID: s.CustomerPartyID,
		State:           string(s.State),
	}
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	return m
}
