// Package errors provides the error model of the orchestrator.
// Every failure that crosses a package boundary is an AppError carrying a
// machine-readable code, a retryable flag and an HTTP status for the control API.
package errors
