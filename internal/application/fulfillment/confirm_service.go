package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	appidempotency "github.com/erp/fulfillment/internal/application/idempotency"
	"github.com/erp/fulfillment/internal/domain/document"
	"github.com/erp/fulfillment/internal/domain/finance"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/idempotency"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// ConfirmOperation is the idempotency operation name of a confirmation
	ConfirmOperation = "fulfillment.confirm"
	// ConfirmResponseSchema tags stored confirmation responses
	ConfirmResponseSchema = "fulfillment.confirm.response"
)

// Confirmation outcomes reported to Metrics
const (
	OutcomeConfirmed = "confirmed"
	OutcomeReplayed  = "replayed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Metrics observes confirmations
type Metrics interface {
	ObserveConfirmation(ctx context.Context, outcome string, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveConfirmation(context.Context, string, time.Duration) {}

// ConfirmService confirms fulfillment orders
type ConfirmService struct {
	scope       TransactionScope
	coordinator *appidempotency.Coordinator
	policy      Policy
	notifier    Notifier
	metrics     Metrics
	logger      *zap.Logger
	newTxID     func() uuid.UUID
}

// Option configures a ConfirmService
type Option func(*ConfirmService)

// WithNotifier sets the post-commit notifier
func WithNotifier(n Notifier) Option {
	return func(s *ConfirmService) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m Metrics) Option {
	return func(s *ConfirmService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *ConfirmService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewConfirmService creates a ConfirmService
func NewConfirmService(scope TransactionScope, coordinator *appidempotency.Coordinator, policy Policy, opts ...Option) *ConfirmService {
	s := &ConfirmService{
		scope:       scope,
		coordinator: coordinator,
		policy:      policy,
		notifier:    noopNotifier{},
		metrics:     noopMetrics{},
		logger:      zap.NewNop(),
		newTxID:     uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Confirm records the delivered quantities of an order and runs every consequence in one transaction.
// A repeated call with the same key and body returns the stored response without re-executing.
func (s *ConfirmService) Confirm(ctx context.Context, actor shared.Actor, orderID uuid.UUID, key string, input ConfirmOrderInput) (*ConfirmOutcome, error) {
	started := time.Now()

	if _, err := shared.NewActor(actor.ActorID, actor.TenantID); err != nil {
		return nil, err
	}
	if err := idempotency.ValidateKey(key); err != nil {
		return nil, err
	}
	if orderID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_ORDER_ID", "Fulfillment order ID is required")
	}

	canonical, err := json.Marshal(input)
	if err != nil {
		return nil, shared.NewValidationError("INVALID_REQUEST", "Request body cannot be encoded")
	}
	scope := idempotency.Scope{TenantID: actor.TenantID, Operation: ConfirmOperation, EntityID: orderID}

	acq, err := s.coordinator.Acquire(ctx, scope, key, appidempotency.Fingerprint(canonical))
	if err != nil {
		s.metrics.ObserveConfirmation(ctx, OutcomeRejected, time.Since(started))
		return nil, err
	}
	if acq.Decision == appidempotency.DecisionReplay {
		s.metrics.ObserveConfirmation(ctx, OutcomeReplayed, time.Since(started))
		return &ConfirmOutcome{StatusCode: acq.Envelope.StatusCode, Body: acq.Envelope.Body, Replayed: true}, nil
	}

	txID := s.newTxID()
	result, event, err := s.execute(ctx, actor, orderID, txID, input)
	if err != nil {
		if ferr := s.coordinator.Fail(context.WithoutCancel(ctx), acq); ferr != nil {
			s.logger.Error("Failed to release idempotency key",
				zap.String("scope", scope.String()),
				zap.String("key", key),
				zap.Error(ferr),
			)
		}
		outcome := OutcomeFailed
		if k := shared.KindOf(err); k == shared.KindValidation || k == shared.KindNotFound || k == shared.KindStateConflict {
			outcome = OutcomeRejected
		}
		s.metrics.ObserveConfirmation(ctx, outcome, time.Since(started))
		s.logger.Info("Fulfillment confirmation rolled back",
			zap.String("order_id", orderID.String()),
			zap.String("transaction_id", txID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode confirmation result: %w", err)
	}
	envelope, err := idempotency.NewResponseEnvelope(ConfirmResponseSchema, http.StatusOK, body)
	if err != nil {
		return nil, err
	}
	// The transaction is committed: a lost Complete only leaves the key to expire
	if err := s.coordinator.Complete(context.WithoutCancel(ctx), acq, envelope); err != nil {
		s.logger.Error("Failed to store confirmation response",
			zap.String("scope", scope.String()),
			zap.String("key", key),
			zap.Error(err),
		)
	}

	if err := s.notifier.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("Failed to hand off confirmation event",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}

	s.metrics.ObserveConfirmation(ctx, OutcomeConfirmed, time.Since(started))
	s.logger.Info("Fulfillment order confirmed",
		zap.String("order_id", orderID.String()),
		zap.String("transaction_id", txID.String()),
		zap.String("parent_state", result.ParentSaleOrder.State),
		zap.Int("movements", result.InventoryMovementsCount),
		zap.Int("differences", len(result.Differences)),
	)
	return &ConfirmOutcome{StatusCode: envelope.StatusCode, Body: envelope.Body}, nil
}

// execute runs the confirmation transaction under the configured timeout
func (s *ConfirmService) execute(ctx context.Context, actor shared.Actor, orderID, txID uuid.UUID, input ConfirmOrderInput) (*ConfirmResult, *fulfillment.OrderConfirmedEvent, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.policy.timeout())
	defer cancel()

	var (
		result *ConfirmResult
		event  *fulfillment.OrderConfirmedEvent
	)
	err := s.scope.Execute(txCtx, func(repos TransactionalRepositories) error {
		var err error
		result, event, err = s.confirmInTx(txCtx, repos, actor, orderID, txID, input)
		return err
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(txCtx.Err(), context.DeadlineExceeded) {
			if ctx.Err() == nil {
				return nil, nil, fmt.Errorf("%w: %v", ErrTransactionTimeout, err)
			}
		}
		return nil, nil, err
	}
	return result, event, nil
}

func (s *ConfirmService) confirmInTx(ctx context.Context, repos TransactionalRepositories, actor shared.Actor, orderID, txID uuid.UUID, input ConfirmOrderInput) (*ConfirmResult, *fulfillment.OrderConfirmedEvent, error) {
	order, err := repos.Orders().FindByIDForTenant(ctx, actor.TenantID, orderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, err
	}
	if err := order.EnsureConfirmable(); err != nil {
		return nil, nil, err
	}
	reports := input.reports()
	if err := order.ValidateReports(reports); err != nil {
		return nil, nil, err
	}

	shipment, parent, invoice, err := s.loadLinked(ctx, repos, actor, order)
	if err != nil {
		return nil, nil, err
	}

	// Lines are applied in stored order whatever order the caller reported them in
	byLine := make(map[uuid.UUID]fulfillment.LineReport, len(reports))
	for _, r := range reports {
		byLine[r.LineID] = r
	}
	applier := inventory.NewApplier(repos.Levels(), repos.Movements(), inventory.StockPolicy{AllowNegative: s.policy.AllowNegativeStock})
	catalog := repos.Catalog()

	movements := 0
	differences := make([]DifferenceDTO, 0)
	quantities := make(map[uuid.UUID]decimal.Decimal, len(order.Lines))
	for _, line := range order.Lines {
		report := byLine[line.ID]
		exists, err := catalog.Exists(ctx, actor.TenantID, line.InventoryItemID)
		if err != nil {
			return nil, nil, err
		}
		if !exists {
			return nil, nil, shared.NewValidationError(ErrUnknownInventoryItem.Code,
				"Inventory item "+line.InventoryItemID.String()+" does not exist")
		}

		diff, err := order.RecordActual(report)
		if err != nil {
			return nil, nil, err
		}
		lineID := line.ID
		movement, err := applier.Apply(ctx, actor, line.InventoryItemID, report.ReportedQty.Neg(), inventory.Cause{
			TransactionID: txID,
			SourceType:    inventory.SourceTypeFulfillmentOrder,
			SourceID:      order.ID,
			SourceLineID:  &lineID,
			Reason:        report.VarianceReason,
		})
		if err != nil {
			return nil, nil, err
		}
		if movement != nil {
			movements++
		}
		if diff != nil {
			differences = append(differences, DifferenceDTO{
				LineID:  diff.LineID,
				Planned: diff.Planned,
				Actual:  diff.Actual,
				Reason:  diff.Reason,
			})
		}
		quantities[line.ID] = report.ReportedQty
	}

	emitter := document.NewEmitter(repos.Shipments(), repos.Invoices(), repos.Numbering())
	if err := emitter.IssueShipment(ctx, actor, shipment, input.Evidence); err != nil {
		return nil, nil, err
	}

	invoiced := false
	ledgerPosted := false
	if invoice != nil && s.policy.shouldIssueInvoice(order.IsFullyDelivered()) {
		if err := emitter.IssueInvoice(ctx, actor, invoice, quantities); err != nil {
			return nil, nil, err
		}
		invoiced = true
		if invoice.Total.IsPositive() {
			if err := s.postReceivable(ctx, repos, actor, invoice, txID); err != nil {
				return nil, nil, err
			}
			ledgerPosted = true
		}
	}

	parentState, err := s.reconcileParent(ctx, repos, actor, order, invoiced)
	if err != nil {
		return nil, nil, err
	}
	if err := parent.ApplyReconciliation(parentState); err != nil {
		return nil, nil, err
	}
	if err := repos.SaleOrders().SaveWithLock(ctx, parent); err != nil {
		return nil, nil, err
	}

	if err := order.Confirm(actor); err != nil {
		return nil, nil, err
	}
	if err := repos.Orders().SaveWithLock(ctx, order); err != nil {
		return nil, nil, err
	}

	result := &ConfirmResult{
		TransactionID:           txID,
		Order:                   StateRef{ID: order.ID, State: order.State.String()},
		ParentSaleOrder:         StateRef{ID: parent.ID, State: parent.State.String()},
		ShipmentDocument:        toDocumentRef(shipment),
		Invoice:                 toInvoiceRef(invoice),
		InventoryMovementsCount: movements,
		LedgerEntryCreated:      ledgerPosted,
		BalanceUpdated:          ledgerPosted,
		Differences:             differences,
	}

	event := fulfillment.NewOrderConfirmedEvent(order, actor, txID, parent.State)
	event.ShipmentNumber = shipment.Number
	event.DifferenceCount = len(differences)
	if invoiced {
		total := invoice.Total
		event.InvoiceNumber = invoice.Number
		event.InvoiceTotal = &total
	}
	return result, event, nil
}

// reconcileParent folds the order being confirmed together with its siblings
// under the same sale order. invoiced is the outcome of this confirmation.
func (s *ConfirmService) reconcileParent(ctx context.Context, repos TransactionalRepositories, actor shared.Actor, order *fulfillment.Order, invoiced bool) (fulfillment.ParentOrderState, error) {
	siblings, err := repos.Orders().FindByParent(ctx, actor.TenantID, order.ParentSaleOrderID)
	if err != nil {
		return "", err
	}

	orders := []*fulfillment.Order{order}
	issued := map[uuid.UUID]bool{order.ID: invoiced}
	for _, sibling := range siblings {
		if sibling.ID == order.ID {
			continue
		}
		orders = append(orders, sibling)
		if sibling.InvoiceID == nil {
			continue
		}
		invoice, err := repos.Invoices().FindByIDForTenant(ctx, actor.TenantID, *sibling.InvoiceID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return "", err
		}
		issued[sibling.ID] = err == nil && invoice.State == document.StateIssued
	}
	return fulfillment.ReconcileParent(orders, func(o *fulfillment.Order) bool { return issued[o.ID] }), nil
}

// loadLinked loads the shipment, the parent sale order and, when invoicing is on, the invoice
func (s *ConfirmService) loadLinked(ctx context.Context, repos TransactionalRepositories, actor shared.Actor, order *fulfillment.Order) (*document.ShipmentDocument, *fulfillment.SaleOrder, *document.Invoice, error) {
	if order.ShipmentDocumentID == uuid.Nil {
		return nil, nil, nil, ErrShipmentNotLinked
	}
	shipment, err := repos.Shipments().FindByIDForTenant(ctx, actor.TenantID, order.ShipmentDocumentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, nil, ErrShipmentNotLinked
		}
		return nil, nil, nil, err
	}

	parent, err := repos.SaleOrders().FindByIDForTenant(ctx, actor.TenantID, order.ParentSaleOrderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, nil, ErrParentOrderNotLinked
		}
		return nil, nil, nil, err
	}

	if !s.policy.InvoiceOnFulfillment {
		return shipment, parent, nil, nil
	}
	if order.InvoiceID == nil {
		return nil, nil, nil, ErrInvoiceNotLinked
	}
	invoice, err := repos.Invoices().FindByIDForTenant(ctx, actor.TenantID, *order.InvoiceID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, nil, ErrInvoiceNotLinked
		}
		return nil, nil, nil, err
	}
	return shipment, parent, invoice, nil
}

func (s *ConfirmService) postReceivable(ctx context.Context, repos TransactionalRepositories, actor shared.Actor, invoice *document.Invoice, txID uuid.UUID) error {
	accountID, err := repos.ChartOfAccounts().ReceivableAccount(ctx, actor.TenantID, invoice.CustomerPartyID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ErrReceivableAccountMissing
		}
		return err
	}
	poster := finance.NewPoster(repos.Accounts(), repos.Entries())
	_, err = poster.Post(ctx, actor, accountID, invoice.Total, finance.EntryKindDebit, finance.Reference{
		Type:          finance.ReferenceTypeInvoice,
		ID:            invoice.ID,
		Number:        invoice.Number,
		TransactionID: txID,
	})
	return err
}
