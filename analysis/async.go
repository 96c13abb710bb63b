package analysis

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/execution"
	"github.com/kbukum/mediaflow/httpclient"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/provider"
	"github.com/kbukum/mediaflow/resilience"
)

// AsyncConfig bounds the load an AsyncService puts on its backend.
type AsyncConfig struct {
	// Concurrency is the number of jobs run at once.
	Concurrency int `mapstructure:"concurrency"`
	// QueueWait is how long Invoke waits for a free slot before rejecting.
	QueueWait time.Duration `mapstructure:"queue_wait"`
	// RateLimit paces calls per second. Zero disables it.
	RateLimit float64 `mapstructure:"rate_limit"`
	// CircuitBreaker guards the backend. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `mapstructure:"-"`
}

// AsyncService adapts a synchronous Backend to the Service contract.
type AsyncService struct {
	name     string
	backend  Backend
	bulkhead *resilience.Bulkhead
	log      *logger.Logger
	wg       sync.WaitGroup
}

var _ Service = (*AsyncService)(nil)

// NewAsyncService wraps backend under name with logging, tracing and the
// limits from cfg.
func NewAsyncService(name string, backend Backend, cfg AsyncConfig, log *logger.Logger) *AsyncService {
	log = log.WithComponent("analysis").WithFields(map[string]any{"service": name})

	middlewares := []provider.Middleware[Job, map[string]any]{
		provider.WithLogging[Job, map[string]any](log),
		provider.WithTracing[Job, map[string]any]("analysis"),
	}
	if cfg.CircuitBreaker != nil {
		cb := *cfg.CircuitBreaker
		if cb.Name == "" {
			cb.Name = name
		}
		middlewares = append(middlewares, provider.WithCircuitBreaker[Job, map[string]any](resilience.NewCircuitBreaker(cb)))
	}
	if cfg.RateLimit > 0 {
		rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: cfg.RateLimit, Burst: max(cfg.Concurrency, 1)})
		middlewares = append(middlewares, provider.WithRateLimit[Job, map[string]any](rl))
	}

	return &AsyncService{
		name:     name,
		backend:  provider.Chain(middlewares...)(backend),
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: cfg.Concurrency, MaxWait: cfg.QueueWait}),
		log:      log,
	}
}

// Name implements provider.Provider.
func (s *AsyncService) Name() string { return s.name }

// IsAvailable reports whether the backend answers.
func (s *AsyncService) IsAvailable(ctx context.Context) bool { return s.backend.IsAvailable(ctx) }

// Invoke takes a slot and runs the job in the background until req.Deadline.
// A full service rejects the request with SERVICE_UNAVAILABLE.
func (s *AsyncService) Invoke(ctx context.Context, req Request) (Accepted, error) {
	if req.Callback == nil {
		return Accepted{}, errors.Internal(stderrors.New("in-process service needs a callback"))
	}
	if err := s.bulkhead.Acquire(ctx); err != nil {
		return Accepted{}, errors.ServiceUnavailable(s.name).WithCause(err)
	}

	// The job outlives the dispatching call.
	jobCtx := context.WithoutCancel(ctx)
	s.wg.Go(func() {
		defer s.bulkhead.Release()
		outcome := s.run(jobCtx, req)
		if err := req.Callback.Complete(jobCtx, req.CallbackToken, outcome); err != nil {
			s.log.WithExecution(req.ExecutionID).WithNode(req.NodeID, req.Attempt).
				Error("Failed to deliver completion", logger.ErrorFields("complete", err))
		}
	})
	return Accepted{CallbackToken: req.CallbackToken}, nil
}

func (s *AsyncService) run(ctx context.Context, req Request) execution.Outcome {
	if !req.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, req.Deadline)
		defer cancel()
	}
	output, err := s.backend.Execute(ctx, Job{
		ExecutionID: req.ExecutionID,
		NodeID:      req.NodeID,
		Attempt:     req.Attempt,
		Payload:     req.Payload,
	})
	if err == nil {
		return execution.Success(output)
	}
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return execution.Failure(errors.Timeout(req.NodeID).WithCause(err))
	}
	return execution.Failure(httpclient.AppError(s.name, err))
}

// Wait blocks until every job started so far has delivered its completion.
func (s *AsyncService) Wait() {
	s.wg.Wait()
}
