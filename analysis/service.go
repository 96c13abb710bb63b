package analysis

import (
	"context"
	"time"

	"github.com/kbukum/mediaflow/execution"
	"github.com/kbukum/mediaflow/provider"
)

// Request is one dispatched attempt of a job node.
type Request struct {
	ExecutionID string         `json:"executionId"`
	NodeID      string         `json:"nodeId"`
	Attempt     int            `json:"attempt"`
	Payload     map[string]any `json:"payload"`
	Deadline    time.Time      `json:"deadline"`
	// CallbackToken correlates the completion with this attempt.
	CallbackToken string `json:"callbackToken"`
	// CallbackURL is where remote services post their completion.
	CallbackURL string `json:"callbackUrl,omitempty"`
	// Callback delivers the completion of in-process services.
	Callback Completer `json:"-"`
}

// Accepted acknowledges a request. The result arrives later through the callback.
type Accepted struct {
	CallbackToken string `json:"callbackToken"`
}

// Completer receives the outcome of an attempt, identified by its callback token.
type Completer interface {
	Complete(ctx context.Context, token string, outcome execution.Outcome) error
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, token string, outcome execution.Outcome) error

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, token string, outcome execution.Outcome) error {
	return f(ctx, token, outcome)
}

// Service is an analysis backend addressed by a job node's service name.
// Invoke must return quickly; the work itself completes asynchronously.
type Service interface {
	provider.Provider
	Invoke(ctx context.Context, req Request) (Accepted, error)
}
