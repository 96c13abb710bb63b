package engine

import (
	"context"
	"strings"
	"time"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/execution"
	"github.com/kbukum/mediaflow/logger"
)

// Run sweeps active executions every SweepInterval until ctx is done.
// Retry timers scheduled afterwards run under ctx.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.baseCtx = ctx
	e.mu.Unlock()

	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()
	e.log.Info("Sweeper started", map[string]any{"interval": e.cfg.SweepInterval.String()})

	for {
		select {
		case <-ctx.Done():
			e.Close()
			e.log.Info("Sweeper stopped")
			return nil
		case <-ticker.C:
			if n, err := e.Sweep(ctx); err != nil {
				e.log.Warn("Sweep failed", logger.ErrorFields("sweep", err))
			} else if n > 0 {
				e.log.Debug("Sweep acted on nodes", map[string]any{"count": n})
			}
		}
	}
}

// Sweep fails attempts whose deadline passed with TIMEOUT, dispatches retries
// whose backoff elapsed and dispatches nodes left ready but never claimed.
// It returns how many nodes it acted on.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	ids, err := e.store.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	acted := 0
	for _, id := range ids {
		x, err := e.store.Get(ctx, id)
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			continue
		}
		if err != nil {
			return acted, err
		}
		if x.Status.Terminal() {
			continue
		}

		now := e.now()
		for _, nodeID := range e.graph.NodeIDs() {
			state := x.Node(nodeID)
			switch {
			case state.Status == execution.NodeRunning && state.Token != "" && !now.Before(state.Deadline):
				e.complete(ctx, id, nodeID, state.Token, execution.Failure(errors.Timeout(nodeID)))
			case state.Status == execution.NodeRunning && state.Token == "" && !state.RetryAt.IsZero() && !now.Before(state.RetryAt):
				e.dispatch(ctx, id, nodeID)
			case state.Status == execution.NodePending && e.ready(x, nodeID):
				e.dispatch(ctx, id, nodeID)
			default:
				continue
			}
			acted++
		}
	}
	return acted, nil
}

// ready reports whether every predecessor of nodeID has resolved.
func (e *Engine) ready(x *execution.Execution, nodeID string) bool {
	if group, ok := e.graph.JoinGroup(nodeID); ok {
		return len(x.Branches[group.Name].Pending) == 0
	}
	for _, pred := range e.graph.Predecessors(nodeID) {
		if x.Node(pred).Status != execution.NodeSucceeded {
			return false
		}
	}
	return true
}

func timerKey(execID, nodeID string) string { return execID + "/" + nodeID }

// scheduleRetry dispatches nodeID again at the given time.
func (e *Engine) scheduleRetry(execID, nodeID string, at time.Time) {
	key := timerKey(execID, nodeID)
	delay := max(at.Sub(e.now()), 0)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if old, ok := e.timers[key]; ok {
		old.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		e.mu.Lock()
		if e.timers[key] == timer {
			delete(e.timers, key)
		}
		ctx := e.baseCtx
		e.mu.Unlock()
		e.dispatch(ctx, execID, nodeID)
	})
	e.timers[key] = timer
}

func (e *Engine) stopTimers(execID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, timer := range e.timers {
		if strings.HasPrefix(key, execID+"/") {
			timer.Stop()
			delete(e.timers, key)
		}
	}
}

// Close stops pending retry timers. Retries left undone are picked up by the
// sweep of any instance.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for key, timer := range e.timers {
		timer.Stop()
		delete(e.timers, key)
	}
}
