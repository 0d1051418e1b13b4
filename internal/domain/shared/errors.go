package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors carrying a more specific message still match their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of the error carrying a formatted message.
func (e *DomainError) WithMessage(format string, args ...any) *DomainError {
	return &DomainError{
		Code:      e.Code,
		Message:   fmt.Sprintf(format, args...),
		Retryable: e.Retryable,
	}
}

// NewDomainError creates a new non-retryable domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewRetryableError creates a domain error that callers may retry
func NewRetryableError(code, message string) *DomainError {
	return &DomainError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// Error codes
const (
	CodeNotFound              = "NOT_FOUND"
	CodeAlreadyExists         = "ALREADY_EXISTS"
	CodeValidation            = "VALIDATION_ERROR"
	CodeInvalidState          = "INVALID_STATE"
	CodeInvalidSignature      = "INVALID_SIGNATURE"
	CodeResourceBusy          = "RESOURCE_BUSY"
	CodeInsufficientInventory = "INSUFFICIENT_INVENTORY"
	CodeAdapterUnavailable    = "ADAPTER_UNAVAILABLE"
	CodeMalformedPayload      = "MALFORMED_PAYLOAD"
	CodeUnknownSource         = "UNKNOWN_SOURCE"
)

// Common domain errors
var (
	ErrNotFound      = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrValidation    = NewDomainError(CodeValidation, "Invalid input provided")
	ErrInvalidState  = NewDomainError(CodeInvalidState, "Operation not allowed in current state")

	// ErrInvalidSignature means the webhook authenticity check failed. The
	// event stays recorded and is never retried automatically.
	ErrInvalidSignature = NewDomainError(CodeInvalidSignature, "Webhook signature verification failed")

	// ErrResourceBusy means a lease on the resource is held by another writer.
	ErrResourceBusy = NewRetryableError(CodeResourceBusy, "Resource is busy, retry later")

	// ErrInsufficientInventory means the adjustment would drive stock below zero.
	ErrInsufficientInventory = NewDomainError(CodeInsufficientInventory, "Insufficient inventory")

	// ErrAdapterUnavailable covers network failures and timeouts talking to a marketplace.
	ErrAdapterUnavailable = NewRetryableError(CodeAdapterUnavailable, "Marketplace adapter unavailable")

	// ErrMalformedPayload is raised only when a payload cannot be coerced at all.
	ErrMalformedPayload = NewDomainError(CodeMalformedPayload, "Malformed payload")

	// ErrUnknownSource means no adapter is registered for the requested source.
	ErrUnknownSource = NewDomainError(CodeUnknownSource, "Unknown marketplace source")
)

// IsRetryable reports whether err, or any error it wraps, is a retryable
// DomainError. Errors outside the domain taxonomy are treated as retryable
// because they usually stem from infrastructure hiccups.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return true
}
