package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/mediaflow/component"
	"github.com/kbukum/mediaflow/logger"
)

// Worker is a long-running loop started after startup and cancelled at
// shutdown. Returning context.Canceled is a clean exit.
type Worker func(ctx context.Context) error

type namedWorker struct {
	name string
	run  Worker
}

// App is a process with uniform lifecycle management over a typed config.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger

	gracefulTimeout time.Duration
	onConfigure     []func(ctx context.Context, app *App[C]) error
	workers         []namedWorker

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewApp applies defaults to cfg, validates it and builds the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	log := o.logger
	if log == nil {
		log = logger.New(&base.Logging, base.Name)
	}

	return &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(log),
		Logger:          log,
		gracefulTimeout: o.gracefulTimeout,
	}, nil
}

// RegisterComponent adds a component to the application's registry.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure registers a callback that runs after components have started.
// Business wiring that needs live infrastructure goes here; components it
// registers are started once every callback has run.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// Go registers a background worker for Run.
func (a *App[C]) Go(name string, w Worker) {
	a.workers = append(a.workers, namedWorker{name: name, run: w})
}

// ReadyCheck reports every component that is not healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		detail := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			detail += "(" + h.Message + ")"
		}
		unhealthy = append(unhealthy, detail)
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Run starts the application and blocks until a signal arrives, ctx is
// cancelled or a worker fails, then shuts down gracefully.
func (a *App[C]) Run(ctx context.Context) error {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	if err := a.startup(ctx); err != nil {
		return errors.Join(err, a.stop())
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range a.workers {
		g.Go(func() error {
			a.Logger.Debug("Worker started", logger.Fields("worker", w.name))
			if err := w.run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error("Worker failed", logger.Fields("worker", w.name, logger.FieldError, err.Error()))
				return fmt.Errorf("worker %s: %w", w.name, err)
			}
			return nil
		})
	}

	a.Logger.Info("Application ready")
	<-gctx.Done()
	if ctx.Err() != nil {
		a.Logger.Info("Shutdown requested")
	}
	workerErr := g.Wait()
	return errors.Join(workerErr, a.stop())
}

// RunTask runs a finite task with the full lifecycle and shuts down when it
// returns or a signal arrives.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	if err := a.startup(ctx); err != nil {
		return errors.Join(err, a.stop())
	}
	taskErr := task(ctx)
	if stopErr := a.stop(); taskErr == nil {
		return stopErr
	}
	return taskErr
}

// Shutdown performs graceful shutdown for callers managing their own loop.
func (a *App[C]) Shutdown(context.Context) error {
	return a.stop()
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start components: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return fmt.Errorf("configuration failed: %w", err)
		}
	}
	// Components registered while configuring start now, after the
	// infrastructure they were built on.
	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start components: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.logSummary(time.Since(start))
	return nil
}

func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var errs []error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", logger.Fields(logger.FieldError, err.Error()))
		errs = append(errs, err)
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		errs = append(errs, err)
	}
	a.Logger.Info("Application stopped")
	return errors.Join(errs...)
}
