package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/idempotency"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFulfillmentOrderModel_PreservesLineOrder(t *testing.T) {
	order, err := fulfillment.NewOrder(uuid.New(), uuid.New(), uuid.New(), "FO-1")
	require.NoError(t, err)
	_, err = order.AddLine(uuid.New(), "first", decimal.NewFromInt(3))
	require.NoError(t, err)
	_, err = order.AddLine(uuid.New(), "second", decimal.NewFromInt(5))
	require.NoError(t, err)

	m := FulfillmentOrderModelFromDomain(order)
	require.Len(t, m.Lines, 2)
	assert.Equal(t, 1, m.Lines[0].Position)
	assert.Equal(t, 2, m.Lines[1].Position)
	assert.Equal(t, order.TenantID, m.Lines[1].TenantID)

	back := m.ToDomain()
	assert.Equal(t, order.ID, back.ID)
	assert.Equal(t, order.Version, back.Version)
	assert.Equal(t, fulfillment.OrderStatePending, back.State)
	assert.Equal(t, "second", back.Lines[1].Description)
	assert.Nil(t, back.Lines[0].ActualQty)
}

func TestIdempotencyRecordModel_EnvelopeSurvives(t *testing.T) {
	scope := idempotency.Scope{TenantID: uuid.New(), Operation: "fulfillment.confirm", EntityID: uuid.New()}
	now := time.Now()
	rec, err := idempotency.NewProcessingRecord(scope, "k-1", "fp", time.Hour, now)
	require.NoError(t, err)

	body := []byte(`{"transactionId":"abc","differences":[]}`)
	env, err := idempotency.NewResponseEnvelope("fulfillment.confirm.response", 200, body)
	require.NoError(t, err)
	require.NoError(t, rec.Complete(env, now))

	m, err := IdempotencyRecordModelFromDomain(rec)
	require.NoError(t, err)
	require.NotNil(t, m.Response)

	back, err := m.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, idempotency.StatusCompleted, back.Status)
	assert.JSONEq(t, string(body), string(back.Response.Body))
	assert.Equal(t, 200, back.Response.StatusCode)
}

func TestIdempotencyRecordModel_RejectsUnknownEnvelopeVersion(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{"schema": "x", "version": 99, "status_code": 200, "body": map[string]any{}})
	s := string(raw)
	m := &IdempotencyRecordModel{Status: "COMPLETED", Response: &s}

	_, err := m.ToDomain()
	assert.Error(t, err)
}
