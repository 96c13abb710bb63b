package trigger

import (
	"context"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/execution"
	"github.com/kbukum/mediaflow/logger"
)

// Starter starts executions. *engine.Engine implements it.
type Starter interface {
	Start(ctx context.Context, t execution.Trigger) (string, error)
}

// Disposition says what became of a notification.
type Disposition string

const (
	Started   Disposition = "started"
	Ignored   Disposition = "ignored"
	Duplicate Disposition = "duplicate"
	Rejected  Disposition = "rejected"
)

// Result describes the handling of one notification.
type Result struct {
	Disposition Disposition `json:"disposition"`
	ExecutionID string      `json:"executionId,omitempty"`
	Reason      string      `json:"reason,omitempty"`
}

// Adapter converts notifications into executions.
type Adapter struct {
	starter Starter
	filter  Filter
	log     *logger.Logger
}

// NewAdapter creates an adapter starting executions on starter.
func NewAdapter(starter Starter, filter Filter, log *logger.Logger) *Adapter {
	return &Adapter{starter: starter, filter: filter, log: log.WithComponent("trigger")}
}

// Submit starts an execution for t. Objects outside the filter are
// INVALID_INPUT; the engine's own errors are returned unchanged.
func (a *Adapter) Submit(ctx context.Context, t execution.Trigger) (string, error) {
	if ok, reason := a.filter.Match(t.ObjectRef); !ok {
		return "", errors.InvalidInput("key", reason)
	}
	return a.starter.Start(ctx, t)
}

// HandleEvent parses an Object Created envelope and starts its execution.
// Events that do not match, duplicates and rejected objects are reported in
// the Result. An error means the event is malformed or the start failed and
// may be retried.
func (a *Adapter) HandleEvent(ctx context.Context, data []byte) (Result, error) {
	ev, err := ParseObjectCreated(data)
	if err != nil {
		return Result{}, err
	}
	log := a.log.WithFields(logger.Fields(
		logger.FieldBucket, ev.Detail.Bucket.Name,
		logger.FieldObjectKey, ev.Detail.Object.Key,
		"event_id", ev.ID,
	))
	if ok, reason := a.filter.MatchEvent(ev); !ok {
		log.Debug("Ignoring event", logger.Fields("reason", reason))
		return Result{Disposition: Ignored, Reason: reason}, nil
	}

	id, err := a.starter.Start(ctx, ev.Trigger())
	switch {
	case err == nil:
		log.Info("Execution triggered", logger.Fields(logger.FieldExecutionID, id))
		return Result{Disposition: Started, ExecutionID: id}, nil
	case errors.IsCode(err, errors.ErrCodeDuplicateExecution):
		log.Info("Object already being analyzed, ignoring redelivery")
		result := Result{Disposition: Duplicate, Reason: "execution in flight"}
		if appErr, ok := errors.AsAppError(err); ok {
			if running, ok := appErr.Details["execution_id"].(string); ok {
				result.ExecutionID = running
			}
		}
		return result, nil
	case errors.IsCode(err, errors.ErrCodeInvalidInput):
		log.Warn("Object rejected", logger.Fields(logger.FieldExecutionID, id, logger.FieldError, err.Error()))
		return Result{Disposition: Rejected, ExecutionID: id, Reason: err.Error()}, nil
	default:
		log.Error("Failed to start execution", logger.ErrorFields("start", err))
		return Result{}, err
	}
}
