package fulfillment

import (
	"context"
	"errors"

	"github.com/erp/fulfillment/internal/domain/document"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// QueryService serves the read model of fulfillment orders
type QueryService struct {
	scope TransactionScope
}

// NewQueryService creates a QueryService
func NewQueryService(scope TransactionScope) *QueryService {
	return &QueryService{scope: scope}
}

// GetOrder returns an order with its lines and linked documents
func (s *QueryService) GetOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*OrderView, error) {
	if _, err := shared.NewActor(actor.ActorID, actor.TenantID); err != nil {
		return nil, err
	}

	var view *OrderView
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		order, err := repos.Orders().FindByIDForTenant(ctx, actor.TenantID, orderID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		view = toOrderView(order)

		if parent, err := repos.SaleOrders().FindByIDForTenant(ctx, actor.TenantID, order.ParentSaleOrderID); err == nil {
			view.ParentSaleOrder = StateRef{ID: parent.ID, State: parent.State.String()}
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if shipment, err := repos.Shipments().FindByIDForTenant(ctx, actor.TenantID, order.ShipmentDocumentID); err == nil {
			view.ShipmentDocument = toDocumentRef(shipment)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if order.InvoiceID != nil {
			var invoice *document.Invoice
			invoice, err = repos.Invoices().FindByIDForTenant(ctx, actor.TenantID, *order.InvoiceID)
			if err == nil {
				view.Invoice = toInvoiceRef(invoice)
			} else if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func toOrderView(o *fulfillment.Order) *OrderView {
	view := &OrderView{
		ID:               o.ID,
		Number:           o.Number,
		State:            o.State.String(),
		Version:          o.Version,
		ParentSaleOrder:  StateRef{ID: o.ParentSaleOrderID},
		ShipmentDocument: DocumentRef{ID: o.ShipmentDocumentID},
		Lines:            make([]LineView, 0, len(o.Lines)),
		ConfirmedAt:      o.ConfirmedAt,
		ConfirmedBy:      o.ConfirmedBy,
	}
	for _, l := range o.Lines {
		view.Lines = append(view.Lines, LineView{
			ID:              l.ID,
			InventoryItemID: l.InventoryItemID,
			Description:     l.Description,
			PlannedQty:      l.PlannedQty,
			ActualQty:       l.ActualQty,
			VarianceReason:  l.VarianceReason,
		})
	}
	return view
}
