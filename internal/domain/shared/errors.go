package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, shared.ErrStorage) holds for any storage failure.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error carrying the code of base and the given cause
func WrapDomainError(base *DomainError, cause error) *DomainError {
	return &DomainError{
		Code:    base.Code,
		Message: base.Message,
		cause:   cause,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Room tab errors
var (
	ErrValidation              = NewDomainError("VALIDATION_ERROR", "Request validation failed")
	ErrNoValidLines            = NewDomainError("NO_VALID_LINES", "Order contains no valid lines")
	ErrMissingSessionReference = NewDomainError("MISSING_SESSION_REFERENCE", "Either session_id or room_number is required")
	ErrStorage                 = NewDomainError("STORAGE_ERROR", "Storage operation failed")
	ErrMirrorSyncFailed        = NewDomainError("MIRROR_SYNC_FAILED", "Failed to mirror session total to POS")
	ErrLockUnavailable         = NewDomainError("LOCK_UNAVAILABLE", "Room is busy, please retry")
	ErrPaymentFailed           = NewDomainError("PAYMENT_FAILED", "Failed to charge session through POS")
)
