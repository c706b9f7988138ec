package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeStorage is used when the ledger store fails
	ErrCodeStorage = "ERR_STORAGE"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeNoValidLines is used when no order line survives normalization
	ErrCodeNoValidLines = "ERR_VALIDATION_NO_VALID_LINES"
	// ErrCodeMissingSessionReference is used when neither session id nor room is given
	ErrCodeMissingSessionReference = "ERR_VALIDATION_MISSING_SESSION_REFERENCE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeDuplicateRequest is used when an Idempotency-Key was already submitted
	ErrCodeDuplicateRequest = "ERR_CONFLICT_DUPLICATE_REQUEST"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeLockUnavailable is used when the room lock could not be taken in time
	ErrCodeLockUnavailable = "ERR_LOCK_UNAVAILABLE"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
)

// Upstream error codes
const (
	// ErrCodeMirrorSyncFailed is used when the POS shadow item could not be written
	ErrCodeMirrorSyncFailed = "ERR_UPSTREAM_MIRROR_SYNC_FAILED"
	// ErrCodePaymentFailed is used when the POS rejected a checkout
	ErrCodePaymentFailed = "ERR_UPSTREAM_PAYMENT_FAILED"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeMethodNotAllowed is used when the route exists for another method
	ErrCodeMethodNotAllowed = "ERR_METHOD_NOT_ALLOWED"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,
	ErrCodeStorage:  http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:              http.StatusBadRequest,
	ErrCodeNoValidLines:            http.StatusBadRequest,
	ErrCodeMissingSessionReference: http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeDuplicateRequest:    http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeLockUnavailable:     http.StatusServiceUnavailable,

	// A closed session cannot be changed -> 409 Conflict
	ErrCodeInvalidState: http.StatusConflict,

	// POS failures -> 502 Bad Gateway
	ErrCodeMirrorSyncFailed: http.StatusBadGateway,
	ErrCodePaymentFailed:    http.StatusBadGateway,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidInput:     http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeMethodNotAllowed: http.StatusMethodNotAllowed,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to the API codes above
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":                 ErrCodeNotFound,
	"ALREADY_EXISTS":            ErrCodeAlreadyExists,
	"INVALID_INPUT":             ErrCodeInvalidInput,
	"INVALID_STATE":             ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":      ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":          ErrCodeValidation,
	"NO_VALID_LINES":            ErrCodeNoValidLines,
	"MISSING_SESSION_REFERENCE": ErrCodeMissingSessionReference,
	"STORAGE_ERROR":             ErrCodeStorage,
	"MIRROR_SYNC_FAILED":        ErrCodeMirrorSyncFailed,
	"LOCK_UNAVAILABLE":          ErrCodeLockUnavailable,
	"PAYMENT_FAILED":            ErrCodePaymentFailed,
	"INVALID_ROOM":              ErrCodeValidation,
	"INVALID_SESSION":           ErrCodeValidation,
	"INVALID_GUEST":             ErrCodeValidation,
	"BAD_REQUEST":               ErrCodeBadRequest,
	"INTERNAL_ERROR":            ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
