// Package handler holds the gin handlers of the fulfillment API.
package handler

import (
	"net/http"

	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response wrapping data
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error maps err onto a response. Unexpected errors are logged and their message hidden.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	status, resp := dto.FromError(err, middleware.GetRequestID(c))
	if status >= http.StatusInternalServerError {
		logger.GetGinLogger(c).Error("Request failed", zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, resp)
}

// BadRequest sends a 400 with a specific code
func (h *BaseHandler) BadRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}
