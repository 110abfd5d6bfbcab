// Package dto holds the HTTP response wrapper and the error to status mapping.
package dto

import (
	"bytes"
	"encoding/json"
)

// Response is the standard API response wrapper
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo carries the error code shown to clients
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail names one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	}
}

// NewValidationErrorResponse creates a validation error response with field details
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	resp := NewErrorResponse(ErrCodeValidation, message, requestID)
	resp.Error.Details = details
	return resp
}

var (
	rawSuccessPrefix = []byte(`{"success":true,"data":`)
	rawSuccessSuffix = []byte(`}`)
)

// WrapRawSuccess wraps an already encoded JSON body in the success envelope
// without re-encoding it, so stored responses are returned byte for byte.
func WrapRawSuccess(body json.RawMessage) []byte {
	var buf bytes.Buffer
	buf.Grow(len(rawSuccessPrefix) + len(body) + len(rawSuccessSuffix))
	buf.Write(rawSuccessPrefix)
	buf.Write(body)
	buf.Write(rawSuccessSuffix)
	return buf.Bytes()
}
