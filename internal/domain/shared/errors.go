package shared

import "errors"

// ErrorKind classifies a domain error for the transport layer.
type ErrorKind string

const (
	KindValidation    ErrorKind = "VALIDATION"
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindStateConflict ErrorKind = "STATE_CONFLICT"
	KindInternal      ErrorKind = "INTERNAL"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped sentinels compare equal.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a VALIDATION error
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewNotFoundError creates a NOT_FOUND error
func NewNotFoundError(code, message string) *DomainError {
	return NewDomainError(KindNotFound, code, message)
}

// NewStateConflictError creates a STATE_CONFLICT error
func NewStateConflictError(code, message string) *DomainError {
	return NewDomainError(KindStateConflict, code, message)
}

// Common domain errors
var (
	ErrNotFound               = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists          = NewStateConflictError("ALREADY_EXISTS", "Resource already exists")
	ErrConcurrentModification = NewStateConflictError("CONCURRENT_MODIFICATION", "Resource was modified by another transaction")
	ErrInvalidState           = NewStateConflictError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock      = NewValidationError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrInternal               = NewDomainError(KindInternal, "INTERNAL_ERROR", "An unexpected error occurred")
)

// KindOf returns the kind of the first DomainError in err's chain.
// Errors without a DomainError are INTERNAL.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
