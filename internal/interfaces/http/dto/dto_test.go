package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		kind   shared.ErrorKind
		status int
	}{
		{shared.KindValidation, http.StatusBadRequest},
		{shared.KindNotFound, http.StatusNotFound},
		{shared.KindStateConflict, http.StatusConflict},
		{shared.KindInternal, http.StatusInternalServerError},
		{shared.ErrorKind("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatus(tt.kind))
		})
	}
}

func TestFromError_WrappedDomainError(t *testing.T) {
	err := fmt.Errorf("%w: pq: could not serialize access", shared.ErrConcurrentModification)

	status, resp := FromError(err, "req-1")
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONCURRENT_MODIFICATION", resp.Error.Code)
	assert.Equal(t, shared.ErrConcurrentModification.Message, resp.Error.Message)
	assert.Equal(t, "req-1", resp.Error.RequestID)
}

func TestFromError_UnknownErrorHidesMessage(t *testing.T) {
	status, resp := FromError(errors.New("dial tcp: connection refused"), "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, ErrCodeInternal, resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "dial tcp")
}

func TestFromError_InternalFallback(t *testing.T) {
	for _, err := range []error{errors.New("pq: relation does not exist"), shared.ErrInternal} {
		status, resp := FromError(err, "req-9")
		assert.Equal(t, http.StatusInternalServerError, status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, shared.ErrInternal.Code, resp.Error.Code)
		assert.Equal(t, shared.ErrInternal.Message, resp.Error.Message)
	}

	timeout := shared.NewDomainError(shared.KindInternal, "TRANSACTION_TIMEOUT", "Confirmation did not finish in time")
	status, resp := FromError(fmt.Errorf("%w: context deadline exceeded", timeout), "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "TRANSACTION_TIMEOUT", resp.Error.Code)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{{Field: "lines", Message: "This field is required"}}
	resp := NewValidationErrorResponse("Request validation failed", "req-2", details)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, details, resp.Error.Details)
}

func TestErrorResponse_JSONShape(t *testing.T) {
	data, err := json.Marshal(NewErrorResponse("ORDER_NOT_CONFIRMABLE", "Order cannot be confirmed", "req-3"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"ORDER_NOT_CONFIRMABLE","message":"Order cannot be confirmed","request_id":"req-3"}}`, string(data))
}

func TestWrapRawSuccess_KeepsBodyBytes(t *testing.T) {
	body := json.RawMessage(`{"zeta":1,"alpha":"2.50"}`)
	wrapped := WrapRawSuccess(body)

	assert.Equal(t, `{"success":true,"data":{"zeta":1,"alpha":"2.50"}}`, string(wrapped))
	assert.True(t, json.Valid(wrapped))
}
