package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/erp/fulfillment/internal/interfaces/http/handler"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubOrders struct{}

func (stubOrders) Confirm(context.Context, shared.Actor, uuid.UUID, string, appfulfillment.ConfirmOrderInput) (*appfulfillment.ConfirmOutcome, error) {
	return &appfulfillment.ConfirmOutcome{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
}

func (stubOrders) GetOrder(_ context.Context, _ shared.Actor, id uuid.UUID) (*appfulfillment.OrderView, error) {
	return &appfulfillment.OrderView{ID: id}, nil
}

func newTestEngine() *gin.Engine {
	engine := NewEngine(EngineConfig{ServiceName: "test", Mode: gin.TestMode, MaxBodyBytes: 1 << 20}, zap.NewNop())
	NewRouter(engine, WithHealth(handler.NewHealthHandler(nil))).
		Register(handler.NewFulfillmentHandler(stubOrders{}, stubOrders{})).
		Setup()
	return engine
}

func TestRouter_Routes(t *testing.T) {
	engine := newTestEngine()

	tests := []struct {
		name       string
		method     string
		path       string
		withActor  bool
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", false, http.StatusOK},
		{"liveness", http.MethodGet, "/health/live", false, http.StatusOK},
		{"get order", http.MethodGet, "/api/v1/fulfillment/orders/" + uuid.NewString(), true, http.StatusOK},
		{"get order without actor", http.MethodGet, "/api/v1/fulfillment/orders/" + uuid.NewString(), false, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v1/nothing", true, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.withActor {
				req.Header.Set(middleware.TenantIDHeader, uuid.NewString())
				req.Header.Set(middleware.UserIDHeader, uuid.NewString())
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestRouter_NoRouteEnvelope(t *testing.T) {
	engine := newTestEngine()
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeRouteNotFound, resp.Error.Code)
	assert.Equal(t, w.Header().Get(middleware.RequestIDHeader), resp.Error.RequestID)
}
