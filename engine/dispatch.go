package engine

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/mediaflow/analysis"
	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/execution"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/observability"
	"github.com/kbukum/mediaflow/workflow"
)

// claimable reports whether a new attempt of the node may start: either it
// never ran, or its previous attempt failed and the retry is waiting.
func claimable(state *execution.NodeState) bool {
	switch state.Status {
	case execution.NodePending:
		return true
	case execution.NodeRunning:
		return state.Token == "" && !state.RetryAt.IsZero()
	}
	return false
}

func (e *Engine) timeout(node *workflow.JobNode) time.Duration {
	if node.Timeout > 0 {
		return node.Timeout
	}
	if node.Kind == workflow.KindJob {
		return e.cfg.DefaultTimeout
	}
	return e.cfg.ControllerTimeout
}

// dispatch claims the next attempt of nodeID and runs it. Losing the claim
// to another caller is not an error; exactly one of them proceeds.
func (e *Engine) dispatch(ctx context.Context, execID, nodeID string) {
	node, ok := e.graph.Node(nodeID)
	if !ok {
		return
	}

	var (
		token    string
		attempt  int
		deadline time.Time
	)
	exec, err := e.store.Update(ctx, execID, func(x *execution.Execution) error {
		token = ""
		state := x.Node(nodeID)
		if x.Status.Terminal() || state == nil || !claimable(state) {
			return execution.ErrUnchanged
		}
		now := e.now()
		token = uuid.NewString()
		state.Status = execution.NodeRunning
		state.Attempts++
		state.Token = token
		state.StartedAt = now
		state.Deadline = now.Add(e.timeout(node))
		state.RetryAt = time.Time{}
		attempt, deadline = state.Attempts, state.Deadline
		return nil
	})
	log := e.log.WithExecution(execID)
	if err != nil {
		log.Error("Failed to dispatch node", logger.ErrorFields("dispatch", err))
		return
	}
	if token == "" {
		return
	}

	e.metrics.NodeDispatched(ctx, nodeID)
	log.WithNode(nodeID, attempt).Info("Node dispatched", map[string]any{"deadline": deadline})

	switch node.Kind {
	case workflow.KindStart, workflow.KindAggregate:
		e.runController(ctx, exec, node, token, deadline)
	default:
		if outcome, accepted := e.invoke(ctx, exec, node, token, attempt, deadline); !accepted {
			e.complete(ctx, execID, nodeID, token, outcome)
		}
	}
}

// runController executes a controller step inline and applies its outcome.
func (e *Engine) runController(ctx context.Context, exec *execution.Execution, node *workflow.JobNode, token string, deadline time.Time) {
	stepCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	stepCtx, span := observability.StartSpan(stepCtx, "workflow."+node.ID, trace.WithAttributes(
		attribute.String(observability.AttrExecutionID, exec.ID),
		attribute.String(observability.AttrNodeID, node.ID),
	))

	var outcome execution.Outcome
	if node.Kind == workflow.KindStart {
		outcome = e.controller.Start(stepCtx, exec, node)
	} else {
		outcome = e.controller.Aggregate(stepCtx, exec, node)
	}
	if outcome.Failed() && stderrors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		outcome = execution.Failure(errors.Timeout(node.ID).WithCause(outcome.Err))
	}
	if outcome.Failed() {
		observability.SetSpanError(stepCtx, outcome.Err)
	}
	span.End()

	e.complete(ctx, exec.ID, node.ID, token, outcome)
}

// invoke hands a job attempt to its analysis service. It returns false with
// a failure outcome when the attempt could not be handed over.
func (e *Engine) invoke(ctx context.Context, exec *execution.Execution, node *workflow.JobNode,
	token string, attempt int, deadline time.Time) (execution.Outcome, bool) {
	payload, err := workflow.SelectInput(node, exec)
	if err != nil {
		return execution.Failure(err), false
	}
	svc, ok := e.services.Get(node.Service)
	if !ok {
		return execution.Failure(errors.ServiceUnavailable(node.Service)), false
	}
	callback, err := e.tokens.Issue(exec.ID, node.ID, attempt, token, deadline)
	if err != nil {
		return execution.Failure(err), false
	}

	ctx, span := observability.StartSpan(ctx, "workflow."+node.ID, trace.WithAttributes(
		attribute.String(observability.AttrExecutionID, exec.ID),
		attribute.String(observability.AttrNodeID, node.ID),
		attribute.Int(observability.AttrAttempt, attempt),
		attribute.String(observability.AttrService, node.Service),
	))
	defer span.End()

	_, err = svc.Invoke(ctx, analysis.Request{
		ExecutionID:   exec.ID,
		NodeID:        node.ID,
		Attempt:       attempt,
		Payload:       payload,
		Deadline:      deadline,
		CallbackToken: callback,
		CallbackURL:   e.cfg.CallbackURL,
		Callback:      e,
	})
	if err != nil {
		observability.SetSpanError(ctx, err)
		if _, isApp := errors.AsAppError(err); !isApp {
			err = errors.ServiceError(node.Service, err)
		}
		return execution.Failure(err), false
	}
	return execution.Outcome{}, true
}

// complete applies an outcome produced by this engine, logging instead of
// returning the error since nobody waits for it.
func (e *Engine) complete(ctx context.Context, execID, nodeID, token string, outcome execution.Outcome) {
	if err := e.OnNodeComplete(ctx, execID, nodeID, token, outcome); err != nil {
		e.log.WithExecution(execID).Error("Failed to apply node outcome",
			logger.Fields(logger.FieldNodeID, nodeID, logger.FieldError, err.Error()))
	}
}
