package errors

import "net/http"

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Workflow construction and admission errors
const (
	// ErrCodeInvalidGraph indicates a workflow graph failed validation.
	ErrCodeInvalidGraph ErrorCode = "INVALID_GRAPH"
	// ErrCodeDuplicateExecution indicates an execution for the same object is already in flight.
	ErrCodeDuplicateExecution ErrorCode = "DUPLICATE_EXECUTION"
	// ErrCodeInvalidInput indicates the input is invalid or not analyzable.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Per-node errors (retryable)
const (
	// ErrCodeTimeout indicates a node did not complete before its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeExternalService indicates an analysis service reported a failure.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	// ErrCodeServiceUnavailable indicates a backend is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeStorage indicates an object storage read or write failed.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
)

// Execution outcome errors
const (
	// ErrCodeIncompleteAnalysis indicates a mandatory branch failed before aggregation.
	ErrCodeIncompleteAnalysis ErrorCode = "INCOMPLETE_ANALYSIS"
	// ErrCodeCancelled indicates the execution was cancelled.
	ErrCodeCancelled ErrorCode = "CANCELLED"
	// ErrCodeUpstreamFailed marks a node that never ran because a node before it failed.
	ErrCodeUpstreamFailed ErrorCode = "UPSTREAM_FAILED"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyTerminal indicates the execution already finished.
	ErrCodeAlreadyTerminal ErrorCode = "ALREADY_TERMINAL"
	// ErrCodeConflict indicates a concurrent update won the race.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeInvalidToken indicates a callback token could not be verified.
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:            true,
	ErrCodeExternalService:    true,
	ErrCodeServiceUnavailable: true,
	ErrCodeStorage:            true,
	ErrCodeConflict:           true,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

var httpStatuses = map[ErrorCode]int{
	ErrCodeInvalidGraph:       http.StatusUnprocessableEntity,
	ErrCodeDuplicateExecution: http.StatusConflict,
	ErrCodeInvalidInput:       http.StatusBadRequest,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeStorage:            http.StatusBadGateway,
	ErrCodeIncompleteAnalysis: http.StatusUnprocessableEntity,
	ErrCodeCancelled:          http.StatusConflict,
	ErrCodeUpstreamFailed:     http.StatusFailedDependency,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeAlreadyTerminal:    http.StatusConflict,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeInvalidToken:       http.StatusUnauthorized,
}

// HTTPStatusOf returns the status a code maps to, 500 for unknown codes.
func HTTPStatusOf(code ErrorCode) int {
	if status, ok := httpStatuses[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
