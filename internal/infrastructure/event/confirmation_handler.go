package event

import (
	"context"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

// ConfirmationLogHandler writes one structured log line per confirmed order.
// It is the default downstream consumer of cmd/notifier.
type ConfirmationLogHandler struct {
	logger *zap.Logger
}

// NewConfirmationLogHandler creates a ConfirmationLogHandler
func NewConfirmationLogHandler(logger *zap.Logger) *ConfirmationLogHandler {
	return &ConfirmationLogHandler{logger: logger}
}

// EventTypes implements shared.EventHandler
func (h *ConfirmationLogHandler) EventTypes() []string {
	return []string{fulfillment.EventTypeOrderConfirmed}
}

// Handle implements shared.EventHandler
func (h *ConfirmationLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	confirmed, ok := event.(*fulfillment.OrderConfirmedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}

	fields := []zap.Field{
		zap.String("event_id", confirmed.EventID().String()),
		zap.String("tenant_id", confirmed.TenantID().String()),
		zap.String("order_id", confirmed.OrderID.String()),
		zap.String("order_number", confirmed.OrderNumber),
		zap.String("transaction_id", confirmed.TransactionID.String()),
		zap.String("parent_state", confirmed.ParentState.String()),
		zap.String("shipment_number", confirmed.ShipmentNumber),
		zap.Int("difference_count", confirmed.DifferenceCount),
	}
	if confirmed.InvoiceTotal != nil {
		fields = append(fields,
			zap.String("invoice_number", confirmed.InvoiceNumber),
			zap.String("invoice_total", confirmed.InvoiceTotal.String()),
		)
	}
	h.logger.Info("Fulfillment order confirmed", fields...)
	return nil
}

var _ shared.EventHandler = (*ConfirmationLogHandler)(nil)
