package handler

import (
	"context"
	"net/http"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Headers of the confirmation endpoint
const (
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
)

// OrderConfirmer confirms a fulfillment order under an idempotency key
type OrderConfirmer interface {
	Confirm(ctx context.Context, actor shared.Actor, orderID uuid.UUID, key string, input appfulfillment.ConfirmOrderInput) (*appfulfillment.ConfirmOutcome, error)
}

// OrderReader loads the read model of a fulfillment order
type OrderReader interface {
	GetOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*appfulfillment.OrderView, error)
}

// FulfillmentHandler serves the fulfillment order endpoints
type FulfillmentHandler struct {
	BaseHandler
	confirmer OrderConfirmer
	reader    OrderReader
}

// NewFulfillmentHandler creates a new FulfillmentHandler
func NewFulfillmentHandler(confirmer OrderConfirmer, reader OrderReader) *FulfillmentHandler {
	return &FulfillmentHandler{confirmer: confirmer, reader: reader}
}

// Confirm handles POST /fulfillment/orders/:id/confirm.
// A replayed response carries the stored body unchanged and Idempotent-Replayed: true.
func (h *FulfillmentHandler) Confirm(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		h.BadRequest(c, dto.ErrCodeValidation, "Tenant and user headers are required")
		return
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, dto.ErrCodeInvalidOrderID, "Order ID must be a UUID")
		return
	}
	key := c.GetHeader(IdempotencyKeyHeader)

	var input appfulfillment.ConfirmOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	ctx := logger.WithIdempotencyKey(c.Request.Context(), key)
	outcome, err := h.confirmer.Confirm(ctx, actor, orderID, key, input)
	if err != nil {
		h.Error(c, err)
		return
	}

	if outcome.Replayed {
		c.Header(IdempotentReplayedHeader, "true")
	}
	c.Data(outcome.StatusCode, "application/json; charset=utf-8", dto.WrapRawSuccess(outcome.Body))
}

// GetOrder handles GET /fulfillment/orders/:id
func (h *FulfillmentHandler) GetOrder(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		h.BadRequest(c, dto.ErrCodeValidation, "Tenant and user headers are required")
		return
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, dto.ErrCodeInvalidOrderID, "Order ID must be a UUID")
		return
	}

	view, err := h.reader.GetOrder(c.Request.Context(), actor, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(view))
}

// RegisterRoutes mounts the fulfillment endpoints; every route requires actor headers
func (h *FulfillmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/fulfillment/orders", middleware.RequireActor())
	orders.GET("/:id", h.GetOrder)
	orders.POST("/:id/confirm", h.Confirm)
}
