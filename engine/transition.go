package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/execution"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/workflow"
)

// transition collects what a completion changed, for the side effects that
// follow the store write.
type transition struct {
	stale    string
	attempt  int
	duration time.Duration
	err      *errors.AppError
	retryAt  time.Time
	failed   bool
	next     []string
	finished bool
}

// OnNodeComplete applies the outcome of one attempt. It is the only way node
// state advances. Completions for an attempt that is no longer current,
// including duplicates, are ignored and return nil.
func (e *Engine) OnNodeComplete(ctx context.Context, execID, nodeID, token string, outcome execution.Outcome) error {
	node, ok := e.graph.Node(nodeID)
	if !ok {
		return errors.NotFound("node", nodeID)
	}
	if !outcome.Failed() {
		if missing := workflow.MissingProvides(node, outcome.Output); len(missing) > 0 {
			outcome = execution.Failure(errors.ServiceError(nodeID, fmt.Errorf("output lacks %v", missing)))
		}
	}

	var tr transition
	exec, err := e.store.Update(ctx, execID, func(x *execution.Execution) error {
		tr = transition{}
		return e.apply(x, node, token, outcome, &tr)
	})
	if err != nil {
		return err
	}

	log := e.log.WithExecution(execID).WithNode(nodeID, tr.attempt)
	switch {
	case tr.stale != "":
		e.metrics.StaleCompletion(ctx, nodeID)
		log.Debug("Completion ignored", map[string]any{"reason": tr.stale})
		return nil
	case !tr.retryAt.IsZero():
		e.metrics.NodeRetried(ctx, nodeID, string(tr.err.Code))
		log.Warn("Node attempt failed, retry scheduled", map[string]any{
			logger.FieldCode:  tr.err.Code,
			logger.FieldError: tr.err.Message,
			"retry_at":        tr.retryAt,
		})
		e.scheduleRetry(execID, nodeID, tr.retryAt)
	case tr.failed:
		e.metrics.NodeCompleted(ctx, nodeID, string(execution.NodeFailed), tr.duration)
		log.Warn("Node failed", map[string]any{
			logger.FieldCode:  tr.err.Code,
			logger.FieldError: tr.err.Message,
			"best_effort":     node.BestEffort(),
		})
	default:
		e.metrics.NodeCompleted(ctx, nodeID, string(execution.NodeSucceeded), tr.duration)
		log.Info("Node succeeded", logger.DurationFields("node", tr.duration))
	}

	for _, next := range tr.next {
		e.dispatch(ctx, execID, next)
	}
	if tr.finished {
		e.finish(ctx, exec)
	}
	return nil
}

func (e *Engine) apply(x *execution.Execution, node *workflow.JobNode, token string, outcome execution.Outcome, tr *transition) error {
	state := x.Node(node.ID)
	switch {
	case x.Status.Terminal():
		tr.stale = "execution " + string(x.Status)
	case state.Status != execution.NodeRunning:
		tr.stale = "node " + string(state.Status)
	case token == "" || state.Token != token:
		tr.stale = "attempt superseded"
	}
	if tr.stale != "" {
		return execution.ErrUnchanged
	}

	now := e.now()
	tr.attempt = state.Attempts
	tr.duration = now.Sub(state.StartedAt)
	state.Token = ""
	state.Deadline = time.Time{}

	if !outcome.Failed() {
		state.Status = execution.NodeSucceeded
		state.Output = outcome.Output
		state.Error = nil
		state.FinishedAt = now
		if outcome.Result != nil {
			x.Result = outcome.Result
		}
		if node.ID == e.graph.Aggregation() {
			x.Status = execution.StatusSucceeded
			x.Error = nil
			tr.finished = true
			return nil
		}
		e.resolve(x, node, tr)
		return nil
	}

	appErr := errors.From(outcome.Err)
	state.Error = appErr.ToInfo()
	tr.err = appErr
	if node.Retry.ShouldRetry(state.Attempts, appErr) {
		state.RetryAt = now.Add(node.Retry.Delay(state.Attempts))
		tr.retryAt = state.RetryAt
		return nil
	}

	state.Status = execution.NodeFailed
	state.FinishedAt = now
	tr.failed = true
	if node.BestEffort() {
		state.Accepted = true
		skipped := errors.UpstreamFailed(node.ID).ToInfo()
		for _, id := range e.graph.Downstream(node.ID) {
			if rest := x.Node(id); !rest.Status.Terminal() {
				stop(rest, skipped, now)
				rest.Accepted = true
			}
		}
		e.resolve(x, node, tr)
		return nil
	}

	failExecution(x, node.ID, appErr, now)
	tr.finished = true
	return nil
}

// resolve records node as done and collects the successors it made ready.
// A join is released through its group's barrier, once, when the last
// branch terminal resolves.
func (e *Engine) resolve(x *execution.Execution, node *workflow.JobNode, tr *transition) {
	state := x.Node(node.ID)
	if group, branch, ok := e.graph.BranchOf(node.ID); ok {
		barrier := x.Branches[group.Name]
		terminal := branch.Terminal()
		if state.Status == execution.NodeFailed || node.ID == terminal {
			barrier.Pending = slices.DeleteFunc(barrier.Pending, func(id string) bool { return id == terminal })
		}
		if state.Status == execution.NodeFailed && !slices.Contains(barrier.Failed, branch.Name) {
			barrier.Failed = append(barrier.Failed, branch.Name)
			slices.Sort(barrier.Failed)
		}
		if len(barrier.Pending) == 0 && !barrier.Released {
			barrier.Released = true
			tr.next = append(tr.next, group.Join)
		}
		if state.Status == execution.NodeFailed || node.ID == terminal {
			return
		}
	}
	for _, next := range node.OnSuccess {
		if _, isJoin := e.graph.JoinGroup(next); isJoin {
			continue
		}
		if x.Node(next).Status == execution.NodePending {
			tr.next = append(tr.next, next)
		}
	}
}

// failExecution ends x because failedNode exhausted its attempts without an
// accepting policy. The result keeps the start metadata plus the error.
func failExecution(x *execution.Execution, failedNode string, cause *errors.AppError, now time.Time) {
	x.Status = execution.StatusFailed
	x.Error = cause.ToInfo()
	upstream := errors.UpstreamFailed(failedNode).ToInfo()
	for _, state := range x.Nodes {
		if !state.Status.Terminal() {
			stop(state, upstream, now)
		}
	}
	if x.Result == nil {
		x.Result = make(map[string]any)
	}
	x.Result["error"] = map[string]any{
		"node":    failedNode,
		"code":    string(cause.Code),
		"message": cause.Message,
	}
}
