package engine

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/mediaflow/analysis"
	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/execution"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/observability"
	"github.com/kbukum/mediaflow/provider"
	"github.com/kbukum/mediaflow/validation"
	"github.com/kbukum/mediaflow/workflow"
)

// Controller runs the start and aggregate steps of a workflow.
// Both see a snapshot of the execution and report through an Outcome whose
// Result, when set, replaces the execution result.
type Controller interface {
	Start(ctx context.Context, exec *execution.Execution, node *workflow.JobNode) execution.Outcome
	Aggregate(ctx context.Context, exec *execution.Execution, node *workflow.JobNode) execution.Outcome
}

// Engine interprets a workflow graph against executions held in a shared store.
// Every state change goes through one conditional store update, so any number
// of engines may serve the same executions.
type Engine struct {
	graph      *workflow.Graph
	store      execution.Store
	controller Controller
	services   *provider.Registry[analysis.Service]
	tokens     *TokenIssuer
	notifier   Notifier
	metrics    *observability.EngineMetrics
	log        *logger.Logger
	cfg        Config
	now        func() time.Time
	newID      func() string

	mu      sync.Mutex
	timers  map[string]*time.Timer
	baseCtx context.Context
	closed  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics records engine activity on m.
func WithMetrics(m *observability.EngineMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithNotifier publishes finished executions to n.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the execution id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// New creates an engine for graph.
func New(graph *workflow.Graph, store execution.Store, controller Controller,
	services *provider.Registry[analysis.Service], cfg Config, opts ...Option) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		graph:      graph,
		store:      store,
		controller: controller,
		services:   services,
		notifier:   nopNotifier{},
		log:        logger.Nop(),
		cfg:        cfg,
		now:        time.Now,
		newID:      uuid.NewString,
		timers:     make(map[string]*time.Timer),
		baseCtx:    context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithComponent("engine")
	e.tokens = NewTokenIssuer(cfg.TokenSecret, cfg.TokenGrace, e.now)
	return e, nil
}

// Graph returns the workflow the engine runs.
func (e *Engine) Graph() *workflow.Graph { return e.graph }

// Tokens returns the callback token issuer.
func (e *Engine) Tokens() *TokenIssuer { return e.tokens }

// Start allocates an execution for the triggering object and dispatches the
// start node. It fails with DUPLICATE_EXECUTION while another execution for
// the same object is in flight. When the start step rejects the object the
// execution is still recorded, as Failed, and its id is returned together
// with the INVALID_INPUT error.
func (e *Engine) Start(ctx context.Context, t execution.Trigger) (string, error) {
	if err := validation.Validate(t); err != nil {
		return "", err
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = e.now()
	}

	id := e.newID()
	exec := execution.New(id, t, e.graph, e.now())
	log := e.log.WithExecution(id).WithFields(map[string]any{
		logger.FieldBucket:    t.Bucket,
		logger.FieldObjectKey: t.Key,
	})
	if err := e.store.Create(ctx, exec); err != nil {
		if errors.IsCode(err, errors.ErrCodeDuplicateExecution) {
			log.Warn("Execution already in flight for object")
		}
		return "", err
	}
	e.metrics.ExecutionStarted(ctx)
	log.Info("Execution started")

	e.dispatch(ctx, id, e.graph.Start())

	snap, err := e.store.Get(ctx, id)
	if err != nil {
		return id, nil
	}
	if snap.Status == execution.StatusFailed && snap.Error != nil && snap.Error.Code == errors.ErrCodeInvalidInput {
		return id, snap.Error.AppError()
	}
	return id, nil
}

// Status returns a snapshot of the execution.
func (e *Engine) Status(ctx context.Context, id string) (*execution.Execution, error) {
	return e.store.Get(ctx, id)
}

// Cancel fails every node that has not finished with CANCELLED. Completions
// still in flight are discarded when they arrive. Cancelling a cancelled
// execution does nothing; cancelling a finished one is ALREADY_TERMINAL.
func (e *Engine) Cancel(ctx context.Context, id string) error {
	var already bool
	exec, err := e.store.Update(ctx, id, func(x *execution.Execution) error {
		already = false
		switch x.Status {
		case execution.StatusCancelled:
			already = true
			return execution.ErrUnchanged
		case execution.StatusSucceeded, execution.StatusFailed:
			return errors.AlreadyTerminal(x.ID, string(x.Status))
		}

		now := e.now()
		cancelled := errors.Cancelled(x.ID).ToInfo()
		x.Status = execution.StatusCancelled
		x.Error = cancelled
		for _, state := range x.Nodes {
			if !state.Status.Terminal() {
				stop(state, cancelled, now)
			}
		}
		return nil
	})
	if err != nil || already {
		return err
	}
	e.finish(ctx, exec)
	return nil
}

// Complete delivers the outcome of the attempt named by a callback token.
func (e *Engine) Complete(ctx context.Context, token string, outcome execution.Outcome) error {
	claims, err := e.tokens.Parse(token)
	if stderrors.Is(err, ErrStaleToken) {
		e.metrics.StaleCompletion(ctx, claims.NodeID)
		e.log.WithExecution(claims.ExecutionID).WithNode(claims.NodeID, claims.Attempt).
			Debug("Completion ignored", map[string]any{"reason": "token expired"})
		return nil
	}
	if err != nil {
		return err
	}
	return e.OnNodeComplete(ctx, claims.ExecutionID, claims.NodeID, claims.ID, outcome)
}

var _ analysis.Completer = (*Engine)(nil)

// finish runs the side effects of a terminal transition.
func (e *Engine) finish(ctx context.Context, exec *execution.Execution) {
	e.stopTimers(exec.ID)
	e.metrics.ExecutionFinished(ctx, string(exec.Status))

	fields := map[string]any{
		logger.FieldStatus:   exec.Status,
		logger.FieldDuration: exec.UpdatedAt.Sub(exec.CreatedAt).Milliseconds(),
	}
	log := e.log.WithExecution(exec.ID)
	if exec.Error != nil {
		fields[logger.FieldCode] = exec.Error.Code
		log.Warn("Execution finished", fields)
	} else {
		log.Info("Execution finished", fields)
	}

	if err := e.notifier.Notify(ctx, eventFor(exec)); err != nil {
		log.Error("Failed to publish execution event", logger.ErrorFields("notify", err))
	}
}

// stop ends a node that will not run again.
func stop(state *execution.NodeState, reason *errors.Info, now time.Time) {
	state.Status = execution.NodeFailed
	state.Error = reason
	state.Token = ""
	state.Deadline = time.Time{}
	state.RetryAt = time.Time{}
	state.FinishedAt = now
}
