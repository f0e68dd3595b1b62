package dto

import (
	"net/http"

	"github.com/erp/fulfillment/internal/domain/shared"
)

// Error codes returned in the response envelope. Domain codes pass through
// unchanged; the rest originate in the HTTP layer.
const (
	ErrCodeValidation             = shared.CodeValidation
	ErrCodeInvalidTransition      = shared.CodeInvalidTransition
	ErrCodeForbidden              = shared.CodeForbidden
	ErrCodeNotFound               = shared.CodeNotFound
	ErrCodeAlreadyExists          = shared.CodeAlreadyExists
	ErrCodeAlreadyDistributed     = shared.CodeAlreadyDistributed
	ErrCodeExternalRetryable      = shared.CodeExternalRetryable
	ErrCodeExternalFatal          = shared.CodeExternalFatal
	ErrCodeInsufficientBalance    = shared.CodeInsufficientBalance
	ErrCodeConcurrentModification = shared.CodeConcurrentModification
	ErrCodeUnauthorized           = shared.CodeUnauthorized

	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeRateLimited  = "RATE_LIMIT_EXCEEDED"
	ErrCodeBodyTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "INVALID_TOKEN"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeValidation:             http.StatusBadRequest,
	ErrCodeBadRequest:             http.StatusBadRequest,
	ErrCodeUnauthorized:           http.StatusUnauthorized,
	ErrCodeTokenExpired:           http.StatusUnauthorized,
	ErrCodeTokenInvalid:           http.StatusUnauthorized,
	ErrCodeForbidden:              http.StatusForbidden,
	ErrCodeNotFound:               http.StatusNotFound,
	ErrCodeAlreadyExists:          http.StatusConflict,
	ErrCodeAlreadyDistributed:     http.StatusConflict,
	ErrCodeConcurrentModification: http.StatusConflict,
	ErrCodeBodyTooLarge:           http.StatusRequestEntityTooLarge,
	ErrCodeInvalidTransition:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientBalance:    http.StatusUnprocessableEntity,
	ErrCodeRateLimited:            http.StatusTooManyRequests,
	ErrCodeInternal:               http.StatusInternalServerError,
	ErrCodeExternalFatal:          http.StatusBadGateway,
	ErrCodeExternalRetryable:      http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes are internal errors.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsExternal reports whether the code describes a failed call to a third party
func IsExternal(code string) bool {
	return code == ErrCodeExternalRetryable || code == ErrCodeExternalFatal
}
