package httpclient

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/resilience"
)

// ErrorCode classifies a failed call.
type ErrorCode int

const (
	ErrCodeTimeout ErrorCode = iota
	ErrCodeConnection
	ErrCodeAuth
	ErrCodeNotFound
	ErrCodeRateLimit
	ErrCodeValidation
	ErrCodeServer
	ErrCodeDecode
)

var codeNames = [...]string{
	ErrCodeTimeout:    "timeout",
	ErrCodeConnection: "connection",
	ErrCodeAuth:       "auth",
	ErrCodeNotFound:   "not_found",
	ErrCodeRateLimit:  "rate_limit",
	ErrCodeValidation: "validation",
	ErrCodeServer:     "server",
	ErrCodeDecode:     "decode",
}

func (c ErrorCode) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return "unknown"
	}
	return codeNames[c]
}

// Error is a classified client failure. StatusCode is zero when no
// response arrived.
type Error struct {
	StatusCode int
	Code       ErrorCode
	Message    string
	Retryable  bool
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func transportError(code ErrorCode, err error) *Error {
	return &Error{Code: code, Message: err.Error(), Retryable: true, Err: err}
}

// NewTimeoutError wraps a deadline hit before a response arrived.
func NewTimeoutError(err error) *Error { return transportError(ErrCodeTimeout, err) }

// NewConnectionError wraps a dial, TLS or read failure.
func NewConnectionError(err error) *Error { return transportError(ErrCodeConnection, err) }

// NewValidationError reports a request that could not be built.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// ClassifyStatusCode maps a non-2xx status to an Error, nil otherwise.
// 429 and 5xx are retryable; other statuses are final.
func ClassifyStatusCode(status int, body []byte) *Error {
	if status >= 200 && status < 300 {
		return nil
	}
	e := &Error{StatusCode: status, Message: fmt.Sprintf("HTTP %d", status), Body: body}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case status == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case status == http.StatusTooManyRequests:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case status >= 400 && status < 500:
		e.Code = ErrCodeValidation
	case status >= 500:
		e.Code, e.Retryable = ErrCodeServer, true
	default:
		e.Code = ErrCodeServer
	}
	return e
}

// IsRetryable reports whether err is a transport failure, 429 or 5xx.
func IsRetryable(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Retryable
}

// AppError converts a client failure into the application error reported
// for service. Rejected requests are final; everything else follows the
// node's retry policy.
func AppError(service string, err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	var e *Error
	if stderrors.As(err, &e) {
		switch e.Code {
		case ErrCodeTimeout:
			return errors.Timeout(service).WithCause(err)
		case ErrCodeValidation, ErrCodeNotFound, ErrCodeAuth, ErrCodeDecode:
			appErr := errors.ServiceError(service, err)
			appErr.Retryable = false
			return appErr
		}
	}
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		return errors.ServiceUnavailable(service).WithCause(err)
	}
	return errors.ServiceError(service, err)
}
