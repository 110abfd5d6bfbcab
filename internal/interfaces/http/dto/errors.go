package dto

import (
	"errors"
	"net/http"

	"github.com/erp/fulfillment/internal/domain/shared"
)

// Request level error codes raised before a use case runs
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeInvalidOrderID  = "INVALID_ORDER_ID"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRouteNotFound   = "ROUTE_NOT_FOUND"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// ErrorKindHTTPStatus maps domain error kinds to HTTP status codes
var ErrorKindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:    http.StatusBadRequest,
	shared.KindNotFound:      http.StatusNotFound,
	shared.KindStateConflict: http.StatusConflict,
	shared.KindInternal:      http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for an error kind.
// Unknown kinds are internal errors.
func GetHTTPStatus(kind shared.ErrorKind) int {
	if status, ok := ErrorKindHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError builds the status and error response for err.
// Errors that are not domain errors are reported as shared.ErrInternal,
// without their own message.
func FromError(err error, requestID string) (int, Response) {
	de := shared.ErrInternal
	errors.As(err, &de)
	return GetHTTPStatus(de.Kind), NewErrorResponse(de.Code, de.Message, requestID)
}
