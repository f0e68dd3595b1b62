package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same error code, so wrapped or
// re-messaged errors still match their sentinel with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeForbidden              = "FORBIDDEN"
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeAlreadyDistributed     = "ALREADY_DISTRIBUTED"
	CodeExternalRetryable      = "EXTERNAL_RETRYABLE"
	CodeExternalFatal          = "EXTERNAL_FATAL"
	CodeInsufficientBalance    = "INSUFFICIENT_BALANCE"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeUnauthorized           = "UNAUTHORIZED"
)

// Common domain errors
var (
	ErrValidation             = NewDomainError(CodeValidation, "Invalid input provided")
	ErrInvalidTransition      = NewDomainError(CodeInvalidTransition, "Action not permitted in current status")
	ErrForbidden              = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists          = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrAlreadyDistributed     = NewDomainError(CodeAlreadyDistributed, "Profits already distributed")
	ErrExternalRetryable      = NewDomainError(CodeExternalRetryable, "External service temporarily unavailable")
	ErrExternalFatal          = NewDomainError(CodeExternalFatal, "External service rejected the request")
	ErrInsufficientBalance    = NewDomainError(CodeInsufficientBalance, "Insufficient balance available")
	ErrConcurrentModification = NewDomainError(CodeConcurrentModification, "Resource was modified by another process")
	ErrUnauthorized           = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
)

// NewValidationError creates a validation error with a formatted message
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewInvalidTransitionError creates an invalid transition error with a formatted message
func NewInvalidTransitionError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidTransition, fmt.Sprintf(format, args...))
}

// NewForbiddenError creates a forbidden error with a formatted message
func NewForbiddenError(format string, args ...any) *DomainError {
	return NewDomainError(CodeForbidden, fmt.Sprintf(format, args...))
}

// NewNotFoundError creates a not found error for the named resource
func NewNotFoundError(resource string, id any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %v not found", resource, id))
}

// AsDomainError finds the DomainError in err's chain. Errors that only match
// an external sentinel through errors.Is, such as carrier failures, take the
// sentinel's code and keep their own message.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	for _, sentinel := range []*DomainError{ErrExternalRetryable, ErrExternalFatal} {
		if errors.Is(err, sentinel) {
			return NewDomainError(sentinel.Code, err.Error()), true
		}
	}
	return nil, false
}
