package fulfillment

import (
	"context"
	"testing"
	"time"

	appidempotency "github.com/erp/fulfillment/internal/application/idempotency"
	"github.com/erp/fulfillment/internal/domain/idempotency"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePartialInvoicePolicy(t *testing.T) {
	p, err := ParsePartialInvoicePolicy(" defer ")
	require.NoError(t, err)
	assert.Equal(t, PartialInvoiceDefer, p)

	p, err = ParsePartialInvoicePolicy("INVOICE_DELIVERED")
	require.NoError(t, err)
	assert.Equal(t, PartialInvoiceDelivered, p)

	_, err = ParsePartialInvoicePolicy("")
	assert.Error(t, err)
}

func TestPolicy_ShouldIssueInvoice(t *testing.T) {
	tests := []struct {
		name           string
		policy         Policy
		fullyDelivered bool
		want           bool
	}{
		{"invoicing off", Policy{}, true, false},
		{"full delivery deferred policy", Policy{InvoiceOnFulfillment: true, PartialInvoice: PartialInvoiceDefer}, true, true},
		{"partial delivery deferred", Policy{InvoiceOnFulfillment: true, PartialInvoice: PartialInvoiceDefer}, false, false},
		{"partial delivery invoiced", Policy{InvoiceOnFulfillment: true, PartialInvoice: PartialInvoiceDelivered}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.shouldIssueInvoice(tt.fullyDelivered))
		})
	}
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, Policy{}.Validate())
	assert.Error(t, Policy{InvoiceOnFulfillment: true}.Validate())
	assert.NoError(t, Policy{InvoiceOnFulfillment: true, PartialInvoice: PartialInvoiceDefer}.Validate())
	assert.Equal(t, DefaultTransactionTimeout, Policy{}.timeout())
}

// blockingScope holds the transaction open until its context ends
type blockingScope struct{}

func (blockingScope) Execute(ctx context.Context, _ func(repos TransactionalRepositories) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestConfirm_TransactionTimeout(t *testing.T) {
	store := cache.NewInMemoryRecordStore(0)
	svc := NewConfirmService(blockingScope{}, appidempotency.NewCoordinator(store),
		Policy{TransactionTimeout: 20 * time.Millisecond})

	actor := shared.Actor{ActorID: uuid.New(), TenantID: uuid.New()}
	orderID := uuid.New()
	q := decimal.NewFromInt(1)
	input := ConfirmOrderInput{Lines: []ConfirmLineInput{{LineID: uuid.New(), ReportedQty: &q}}}

	_, err := svc.Confirm(context.Background(), actor, orderID, "key-1", input)
	assert.ErrorIs(t, err, ErrTransactionTimeout)
	assert.Equal(t, shared.KindInternal, shared.KindOf(err))

	scope := idempotency.Scope{TenantID: actor.TenantID, Operation: ConfirmOperation, EntityID: orderID}
	record, err := store.Find(context.Background(), scope.String(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, idempotency.StatusFailed, record.Status)
}
