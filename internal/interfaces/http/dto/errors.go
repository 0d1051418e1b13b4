package dto

import (
	"net/http"

	"github.com/omnisync/backend/internal/domain/shared"
)

// Error codes returned in the error body. Format: ERR_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	ErrCodeValidation       = "ERR_VALIDATION"
	ErrCodeBadRequest       = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON      = "ERR_INVALID_JSON"
	ErrCodeMalformedPayload = "ERR_MALFORMED_PAYLOAD"
	ErrCodeUnknownSource    = "ERR_UNKNOWN_SOURCE"
	ErrCodeRequestTooLarge  = "ERR_REQUEST_TOO_LARGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized     = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired     = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid     = "ERR_TOKEN_INVALID"
	ErrCodeInvalidSignature = "ERR_INVALID_SIGNATURE"
)

// Resource error codes
const (
	ErrCodeNotFound              = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists         = "ERR_ALREADY_EXISTS"
	ErrCodeInvalidState          = "ERR_INVALID_STATE"
	ErrCodeResourceBusy          = "ERR_RESOURCE_BUSY"
	ErrCodeInsufficientInventory = "ERR_INSUFFICIENT_INVENTORY"
)

// Availability error codes
const (
	ErrCodeAdapterUnavailable = "ERR_ADAPTER_UNAVAILABLE"
	ErrCodeRateLimited        = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeMalformedPayload: http.StatusBadRequest,
	ErrCodeUnknownSource:    http.StatusBadRequest,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeTokenExpired:     http.StatusUnauthorized,
	ErrCodeTokenInvalid:     http.StatusUnauthorized,
	ErrCodeInvalidSignature: http.StatusUnauthorized,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeInvalidState:  http.StatusConflict,
	// Both are conflicts with current stock state; the body code tells them apart.
	ErrCodeResourceBusy:          http.StatusConflict,
	ErrCodeInsufficientInventory: http.StatusConflict,

	ErrCodeAdapterUnavailable: http.StatusServiceUnavailable,
	ErrCodeRateLimited:        http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps shared.DomainError codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:              ErrCodeNotFound,
	shared.CodeAlreadyExists:         ErrCodeAlreadyExists,
	shared.CodeValidation:            ErrCodeValidation,
	shared.CodeInvalidState:          ErrCodeInvalidState,
	shared.CodeInvalidSignature:      ErrCodeInvalidSignature,
	shared.CodeResourceBusy:          ErrCodeResourceBusy,
	shared.CodeInsufficientInventory: ErrCodeInsufficientInventory,
	shared.CodeAdapterUnavailable:    ErrCodeAdapterUnavailable,
	shared.CodeMalformedPayload:      ErrCodeMalformedPayload,
	shared.CodeUnknownSource:         ErrCodeUnknownSource,
}

// NormalizeErrorCode converts a domain error code to its API form. Codes
// already in API form, or unknown, are returned unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
