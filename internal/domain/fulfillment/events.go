package fulfillment

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// AggregateTypeOrder is the aggregate type for fulfillment orders
	AggregateTypeOrder = "FulfillmentOrder"

	// EventTypeOrderConfirmed is published after a confirmation commits
	EventTypeOrderConfirmed = "fulfillment.confirmed"
)

// OrderConfirmedEvent notifies downstream consumers that an order was confirmed
type OrderConfirmedEvent struct {
	shared.BaseDomainEvent
	OrderID            uuid.UUID        `json:"order_id"`
	OrderNumber        string           `json:"order_number"`
	TransactionID      uuid.UUID        `json:"transaction_id"`
	ActorID            uuid.UUID        `json:"actor_id"`
	ParentSaleOrderID  uuid.UUID        `json:"parent_sale_order_id"`
	ParentState        ParentOrderState `json:"parent_state"`
	ShipmentDocumentID uuid.UUID        `json:"shipment_document_id"`
	ShipmentNumber     string           `json:"shipment_number"`
	InvoiceID          *uuid.UUID       `json:"invoice_id,omitempty"`
	InvoiceNumber      string           `json:"invoice_number,omitempty"`
	InvoiceTotal       *decimal.Decimal `json:"invoice_total,omitempty"`
	DifferenceCount    int              `json:"difference_count"`
}

// NewOrderConfirmedEvent builds the event for a confirmed order
func NewOrderConfirmedEvent(order *Order, actor shared.Actor, transactionID uuid.UUID, parentState ParentOrderState) *OrderConfirmedEvent {
	return &OrderConfirmedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeOrderConfirmed, AggregateTypeOrder, order.ID, order.TenantID, 1),
		OrderID:            order.ID,
		OrderNumber:        order.Number,
		TransactionID:      transactionID,
		ActorID:            actor.ActorID,
		ParentSaleOrderID:  order.ParentSaleOrderID,
		ParentState:        parentState,
		ShipmentDocumentID: order.ShipmentDocumentID,
		InvoiceID:          order.InvoiceID,
	}
}
