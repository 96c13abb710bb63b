package provider

import (
	"context"
	"time"

	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/observability"
	"github.com/kbukum/mediaflow/resilience"
)

// Middleware wraps a RequestResponse provider.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain composes middlewares; the first one is outermost.
// Chain(a, b, c)(p) is equivalent to a(b(c(p))).
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}

type wrapped[I, O any] struct {
	inner   RequestResponse[I, O]
	execute func(ctx context.Context, input I) (O, error)
}

func (w *wrapped[I, O]) Name() string                         { return w.inner.Name() }
func (w *wrapped[I, O]) IsAvailable(ctx context.Context) bool { return w.inner.IsAvailable(ctx) }
func (w *wrapped[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return w.execute(ctx, input)
}

// WithLogging logs each call with its duration.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &wrapped[I, O]{inner: inner, execute: func(ctx context.Context, input I) (O, error) {
			start := time.Now()
			output, err := inner.Execute(ctx, input)
			fields := logger.Fields("provider", inner.Name(), logger.FieldDuration, time.Since(start).Milliseconds())
			if err != nil {
				fields[logger.FieldError] = err.Error()
				log.WithContext(ctx).Warn("provider call failed", fields)
			} else {
				log.WithContext(ctx).Debug("provider call ok", fields)
			}
			return output, err
		}}
	}
}

// WithTracing opens a "{service}.{provider}" span around each call.
func WithTracing[I, O any](serviceName string) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &wrapped[I, O]{inner: inner, execute: func(ctx context.Context, input I) (O, error) {
			ctx, span := observability.StartSpan(ctx, serviceName+"."+inner.Name())
			defer span.End()
			output, err := inner.Execute(ctx, input)
			if err != nil {
				observability.SetSpanError(ctx, err)
			}
			return output, err
		}}
	}
}

// WithCircuitBreaker fails fast with resilience.ErrCircuitOpen while the backend keeps failing.
func WithCircuitBreaker[I, O any](cb *resilience.CircuitBreaker) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &wrapped[I, O]{inner: inner, execute: func(ctx context.Context, input I) (O, error) {
			var output O
			err := cb.Execute(func() error {
				var err error
				output, err = inner.Execute(ctx, input)
				return err
			})
			return output, err
		}}
	}
}

// WithRateLimit waits for a token before each call.
func WithRateLimit[I, O any](rl *resilience.RateLimiter) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &wrapped[I, O]{inner: inner, execute: func(ctx context.Context, input I) (O, error) {
			if err := rl.Wait(ctx); err != nil {
				var zero O
				return zero, err
			}
			return inner.Execute(ctx, input)
		}}
	}
}
