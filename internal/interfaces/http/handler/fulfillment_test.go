package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/domain/idempotency"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type mockConfirmer struct {
	mock.Mock
}

func (m *mockConfirmer) Confirm(ctx context.Context, actor shared.Actor, orderID uuid.UUID, key string, input appfulfillment.ConfirmOrderInput) (*appfulfillment.ConfirmOutcome, error) {
	args := m.Called(ctx, actor, orderID, key, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfulfillment.ConfirmOutcome), args.Error(1)
}

type mockReader struct {
	mock.Mock
}

func (m *mockReader) GetOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*appfulfillment.OrderView, error) {
	args := m.Called(ctx, actor, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfulfillment.OrderView), args.Error(1)
}

type fixture struct {
	router    *gin.Engine
	confirmer *mockConfirmer
	reader    *mockReader
	tenantID  uuid.UUID
	userID    uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		confirmer: new(mockConfirmer),
		reader:    new(mockReader),
		tenantID:  uuid.New(),
		userID:    uuid.New(),
	}
	h := NewFulfillmentHandler(f.confirmer, f.reader)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequireActor())
	r.POST("/orders/:id/confirm", h.Confirm)
	r.GET("/orders/:id", h.GetOrder)
	f.router = r
	return f
}

func (f *fixture) do(method, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantIDHeader, f.tenantID.String())
	req.Header.Set(middleware.UserIDHeader, f.userID.String())
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func validBody(lineID uuid.UUID) string {
	return `{"lines":[{"lineId":"` + lineID.String() + `","reportedQty":"10"}]}`
}

func TestConfirm_WrapsStoredBody(t *testing.T) {
	f := newFixture()
	orderID := uuid.New()
	lineID := uuid.New()
	stored := []byte(`{"orderId":"x","state":"FULFILLED"}`)

	f.confirmer.On("Confirm", mock.Anything, mock.MatchedBy(func(a shared.Actor) bool {
		return a.TenantID == f.tenantID && a.ActorID == f.userID
	}), orderID, "key-1", mock.MatchedBy(func(in appfulfillment.ConfirmOrderInput) bool {
		return len(in.Lines) == 1 && in.Lines[0].LineID == lineID && in.Lines[0].ReportedQty.String() == "10"
	})).Return(&appfulfillment.ConfirmOutcome{StatusCode: http.StatusOK, Body: stored}, nil).Once()

	w := f.do(http.MethodPost, "/orders/"+orderID.String()+"/confirm", "key-1", validBody(lineID))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"success":true,"data":{"orderId":"x","state":"FULFILLED"}}`, w.Body.String())
	assert.Empty(t, w.Header().Get(IdempotentReplayedHeader))
	f.confirmer.AssertExpectations(t)
}

func TestConfirm_ReplaySetsHeader(t *testing.T) {
	f := newFixture()
	orderID := uuid.New()
	stored := []byte(`{"state":"FULFILLED"}`)
	f.confirmer.On("Confirm", mock.Anything, mock.Anything, orderID, "key-1", mock.Anything).
		Return(&appfulfillment.ConfirmOutcome{StatusCode: http.StatusOK, Body: stored, Replayed: true}, nil)

	first := f.do(http.MethodPost, "/orders/"+orderID.String()+"/confirm", "key-1", validBody(uuid.New()))
	second := f.do(http.MethodPost, "/orders/"+orderID.String()+"/confirm", "key-1", validBody(uuid.New()))

	assert.Equal(t, "true", second.Header().Get(IdempotentReplayedHeader))
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}

func TestConfirm_RequestErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"bad order id", "/orders/nope/confirm", validBody(uuid.New()), http.StatusBadRequest, dto.ErrCodeInvalidOrderID},
		{"malformed json", "/orders/" + uuid.NewString() + "/confirm", `{"lines":`, http.StatusBadRequest, dto.ErrCodeInvalidJSON},
		{"missing lines", "/orders/" + uuid.NewString() + "/confirm", `{}`, http.StatusBadRequest, dto.ErrCodeValidation},
		{"missing qty", "/orders/" + uuid.NewString() + "/confirm", `{"lines":[{"lineId":"` + uuid.NewString() + `"}]}`, http.StatusBadRequest, dto.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			w := f.do(http.MethodPost, tt.path, "key-1", tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantErr, resp.Error.Code)
			f.confirmer.AssertNotCalled(t, "Confirm")
		})
	}
}

func TestConfirm_DomainErrorStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"missing key", idempotency.ValidateKey(""), http.StatusBadRequest, "IDEMPOTENCY_KEY_REQUIRED"},
		{"in progress", idempotency.ErrInProgress, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS"},
		{"key reused", idempotency.ErrKeyReused, http.StatusBadRequest, "IDEMPOTENCY_KEY_REUSED"},
		{"not found", shared.NewNotFoundError("ORDER_NOT_FOUND", "Fulfillment order not found"), http.StatusNotFound, "ORDER_NOT_FOUND"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			orderID := uuid.New()
			f.confirmer.On("Confirm", mock.Anything, mock.Anything, orderID, mock.Anything, mock.Anything).Return(nil, tt.err)

			w := f.do(http.MethodPost, "/orders/"+orderID.String()+"/confirm", "", validBody(uuid.New()))

			assert.Equal(t, tt.wantCode, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp.Error.Code)
			assert.NotContains(t, w.Body.String(), "connection reset")
		})
	}
}

func TestGetOrder(t *testing.T) {
	f := newFixture()
	orderID := uuid.New()
	f.reader.On("GetOrder", mock.Anything, mock.Anything, orderID).
		Return(&appfulfillment.OrderView{ID: orderID, Number: "FO-1", State: "PENDING"}, nil)

	w := f.do(http.MethodGet, "/orders/"+orderID.String(), "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool                     `json:"success"`
		Data    appfulfillment.OrderView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, orderID, resp.Data.ID)
	assert.Equal(t, "PENDING", resp.Data.State)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture()
	orderID := uuid.New()
	f.reader.On("GetOrder", mock.Anything, mock.Anything, orderID).Return(nil, shared.ErrNotFound)

	w := f.do(http.MethodGet, "/orders/"+orderID.String(), "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
