package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// GraphError reports a workflow graph that cannot be built.
func GraphError(format string, args ...any) *AppError {
	return &AppError{
		Code: ErrCodeInvalidGraph, Message: fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
	}
}

// DuplicateExecution rejects a start for an object that already has a running execution.
func DuplicateExecution(key, executionID string) *AppError {
	return &AppError{
		Code: ErrCodeDuplicateExecution, Message: fmt.Sprintf("An execution for %s is already in flight.", key),
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"idempotency_key": key, "execution_id": executionID},
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Timeout creates a new AppError for an operation that missed its deadline.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s did not complete before its deadline.", operation),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// ServiceError creates a new AppError for a failure reported by an analysis service.
func ServiceError(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("The %s service encountered an error.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}

// ServiceUnavailable creates a new AppError for a backend that cannot take requests.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// StorageError creates a new AppError for a failed object storage operation.
func StorageError(op, path string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeStorage, Message: fmt.Sprintf("storage %s failed for %s", op, path),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"operation": op, "path": path}, Cause: cause,
	}
}

// IncompleteAnalysis reports mandatory branches that failed before aggregation.
func IncompleteAnalysis(branches []string) *AppError {
	return &AppError{
		Code: ErrCodeIncompleteAnalysis, Message: fmt.Sprintf("mandatory branches failed: %v", branches),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
		Details: map[string]any{"branches": branches},
	}
}

// Cancelled marks work abandoned because its execution was cancelled.
func Cancelled(executionID string) *AppError {
	return &AppError{
		Code: ErrCodeCancelled, Message: "execution was cancelled",
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"execution_id": executionID},
	}
}

// UpstreamFailed marks a node skipped because the named node failed.
func UpstreamFailed(nodeID string) *AppError {
	return &AppError{
		Code: ErrCodeUpstreamFailed, Message: fmt.Sprintf("upstream node %s failed", nodeID),
		HTTPStatus: http.StatusFailedDependency, Retryable: false,
		Details: map[string]any{"node_id": nodeID},
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// AlreadyTerminal rejects an operation on an execution that already finished.
func AlreadyTerminal(executionID, status string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyTerminal, Message: fmt.Sprintf("execution %s is already %s", executionID, status),
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"execution_id": executionID, "status": status},
	}
}

// Conflict creates a new AppError for a lost optimistic update.
func Conflict(reason string) *AppError {
	return &AppError{
		Code: ErrCodeConflict, Message: reason,
		HTTPStatus: http.StatusConflict, Retryable: true,
	}
}

// InvalidToken rejects a callback token that failed verification.
func InvalidToken(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInvalidToken, Message: "callback token is invalid",
		HTTPStatus: http.StatusUnauthorized, Retryable: false, Cause: cause,
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// IsCode reports whether err is an AppError carrying code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsRetryable reports whether err is worth another attempt.
// Errors that are not AppErrors are treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Retryable
	}
	return true
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// From wraps any error as an AppError, keeping existing AppErrors unchanged.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}
