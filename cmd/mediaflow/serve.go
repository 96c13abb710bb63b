package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/kbukum/mediaflow/analysis"
	"github.com/kbukum/mediaflow/api"
	"github.com/kbukum/mediaflow/bootstrap"
	"github.com/kbukum/mediaflow/controller"
	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/execution"
	"github.com/kbukum/mediaflow/kafka"
	"github.com/kbukum/mediaflow/kafka/consumer"
	"github.com/kbukum/mediaflow/kafka/producer"
	"github.com/kbukum/mediaflow/observability"
	"github.com/kbukum/mediaflow/redis"
	"github.com/kbukum/mediaflow/server"
	"github.com/kbukum/mediaflow/storage"
	_ "github.com/kbukum/mediaflow/storage/memory"
	"github.com/kbukum/mediaflow/trigger"
	"github.com/kbukum/mediaflow/version"
	"github.com/kbukum/mediaflow/workflow"
)

type App = bootstrap.App[*AppConfig]

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Version == "" {
				cfg.Version = version.Get().String()
			}
			app, err := bootstrap.NewApp(cfg)
			if err != nil {
				return err
			}
			if err := setup(cmd.Context(), app); err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
}

// setup registers infrastructure components and defers the engine wiring
// until they are live.
func setup(ctx context.Context, app *App) error {
	cfg := app.Cfg
	log := app.Logger

	metrics, err := initObservability(ctx, app)
	if err != nil {
		return err
	}

	media := storage.NewComponent(cfg.Storage.Config, cfg.Storage.ProviderConfig(), log)
	if err := app.RegisterComponent(media); err != nil {
		return err
	}
	var cache *redis.Component
	if cfg.Redis.Enabled {
		cache = redis.NewComponent(cfg.Redis, log)
		if err := app.RegisterComponent(cache); err != nil {
			return err
		}
	}

	app.OnConfigure(func(ctx context.Context, app *App) error {
		return wire(app, media, cache, metrics)
	})
	return nil
}

// wire builds the orchestrator on top of the started infrastructure and
// registers the components that expose it.
func wire(app *App, media *storage.Component, cache *redis.Component, metrics *observability.EngineMetrics) error {
	cfg := app.Cfg
	log := app.Logger

	graph, err := loadGraph(cfg.Workflow)
	if err != nil {
		return err
	}

	opts := execution.Options{TTL: cfg.Executions.TTL, MaxConflicts: cfg.Executions.MaxConflicts, LockTTL: cfg.Executions.LockTTL}
	var store execution.Store
	if cache != nil {
		store = execution.NewRedisStore(cache.Client(), opts)
	} else {
		log.Warn("Redis disabled, executions are kept in memory and not shared between instances")
		store = execution.NewMemoryStore(opts)
	}

	ctrl, err := controller.New(graph, media.Storage(), cfg.Controller, controller.WithLogger(log))
	if err != nil {
		return err
	}
	services, err := analysis.Build(cfg.Analysis, media.Storage(), log)
	if err != nil {
		return err
	}

	engineOpts := []engine.Option{engine.WithLogger(log), engine.WithMetrics(metrics)}
	var broker *kafka.Component
	if cfg.Kafka.Enabled {
		broker = kafka.NewComponent(cfg.Kafka, log)
		if cfg.Kafka.EventsTopic != "" {
			p, err := producer.NewProducer(cfg.Kafka, log)
			if err != nil {
				return err
			}
			broker.SetProducer(p)
			engineOpts = append(engineOpts, engine.WithNotifier(producer.NewEventPublisher(p, cfg.Kafka.EventsTopic)))
		}
	}

	eng, err := engine.New(graph, store, ctrl, services.Registry, cfg.Engine, engineOpts...)
	if err != nil {
		return err
	}
	app.Go("sweeper", eng.Run)
	app.OnStop(func(context.Context) error {
		eng.Close()
		services.Wait()
		return nil
	})

	triggers := trigger.NewAdapter(eng, cfg.Trigger.Filter(), log)
	if broker != nil {
		c, err := consumer.NewConsumer(cfg.Kafka, cfg.Trigger.Topic, log)
		if err != nil {
			return err
		}
		broker.AddRunner(trigger.NewKafkaSource(c, triggers))
		if err := app.RegisterComponent(broker); err != nil {
			return err
		}
	}

	srv := server.New(cfg.Server, log)
	srv.ApplyDefaults(cfg.Name, app.Components.HealthAll)
	api.New(eng, triggers, log).Register(srv.Engine())
	return app.RegisterComponent(server.NewComponent(srv))
}

// initObservability installs the OTLP exporters when enabled. Instruments
// are created either way; without exporters they record into the no-op
// provider.
func initObservability(ctx context.Context, app *App) (*observability.EngineMetrics, error) {
	cfg := app.Cfg
	if cfg.Observability.Enabled {
		res := observability.Resource{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
		}
		tp, err := observability.InitTracer(ctx, cfg.Observability, res)
		if err != nil {
			return nil, err
		}
		mp, err := observability.InitMeter(ctx, cfg.Observability, res)
		if err != nil {
			return nil, err
		}
		app.OnStop(tp.Shutdown, mp.Shutdown)
	}
	metrics, err := observability.NewEngineMetrics(otel.Meter(cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("creating engine metrics: %w", err)
	}
	return metrics, nil
}

func loadGraph(path string) (*workflow.Graph, error) {
	def := workflow.SentimentAnalysis()
	if path != "" {
		var err error
		if def, err = workflow.LoadDefinition(path); err != nil {
			return nil, err
		}
	}
	return def.Build()
}
