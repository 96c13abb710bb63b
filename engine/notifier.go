package engine

import (
	"context"
	"time"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/execution"
)

// EventType classifies a finished execution.
type EventType string

const (
	EventSucceeded EventType = "execution.succeeded"
	EventFailed    EventType = "execution.failed"
	EventCancelled EventType = "execution.cancelled"
)

// Event is published once per execution when it reaches a terminal status.
type Event struct {
	Type        EventType           `json:"type"`
	ExecutionID string              `json:"executionId"`
	Workflow    string              `json:"workflow"`
	Object      execution.ObjectRef `json:"object"`
	Status      execution.Status    `json:"status"`
	Result      map[string]any      `json:"result,omitempty"`
	Error       *errors.Info        `json:"error,omitempty"`
	FinishedAt  time.Time           `json:"finishedAt"`
}

// Notifier receives finished-execution events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event Event) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, event Event) error { return f(ctx, event) }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) error { return nil }

func eventFor(e *execution.Execution) Event {
	ev := Event{
		ExecutionID: e.ID,
		Workflow:    e.Workflow,
		Object:      e.Input,
		Status:      e.Status,
		Result:      e.Result,
		Error:       e.Error,
		FinishedAt:  e.UpdatedAt,
	}
	switch e.Status {
	case execution.StatusSucceeded:
		ev.Type = EventSucceeded
	case execution.StatusCancelled:
		ev.Type = EventCancelled
	default:
		ev.Type = EventFailed
	}
	return ev
}
