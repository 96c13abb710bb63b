package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeter installs a global meter provider exporting over OTLP HTTP.
// The caller shuts the returned provider down on exit.
func InitMeter(ctx context.Context, cfg Config, r Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(r)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// EngineMetrics holds the orchestrator's instruments.
// A nil *EngineMetrics is valid and records nothing.
type EngineMetrics struct {
	executionsStarted  metric.Int64Counter
	executionsFinished metric.Int64Counter
	executionsActive   metric.Int64UpDownCounter
	nodeDispatches     metric.Int64Counter
	nodeRetries        metric.Int64Counter
	nodeOutcomes       metric.Int64Counter
	nodeDuration       metric.Float64Histogram
	staleCompletions   metric.Int64Counter
}

// NewEngineMetrics creates the instruments on meter.
func NewEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	m := &EngineMetrics{}
	var err error
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.executionsStarted, "workflow.executions.started", "Executions accepted by start"},
		{&m.executionsFinished, "workflow.executions.finished", "Executions that reached a terminal status"},
		{&m.nodeDispatches, "workflow.node.dispatches", "Node attempts dispatched"},
		{&m.nodeRetries, "workflow.node.retries", "Node attempts scheduled for retry"},
		{&m.nodeOutcomes, "workflow.node.outcomes", "Node completions applied"},
		{&m.staleCompletions, "workflow.node.stale_completions", "Completions discarded as duplicate or stale"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}
	if m.executionsActive, err = meter.Int64UpDownCounter("workflow.executions.active",
		metric.WithDescription("Executions currently running")); err != nil {
		return nil, fmt.Errorf("creating workflow.executions.active: %w", err)
	}
	if m.nodeDuration, err = meter.Float64Histogram("workflow.node.duration",
		metric.WithDescription("Time from dispatch to completion of a node attempt"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating workflow.node.duration: %w", err)
	}
	return m, nil
}

// ExecutionStarted records a new running execution.
func (m *EngineMetrics) ExecutionStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.executionsStarted.Add(ctx, 1)
	m.executionsActive.Add(ctx, 1)
}

// ExecutionFinished records a terminal execution by status.
func (m *EngineMetrics) ExecutionFinished(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.executionsActive.Add(ctx, -1)
	m.executionsFinished.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// NodeDispatched records a node attempt handed to its service.
func (m *EngineMetrics) NodeDispatched(ctx context.Context, nodeID string) {
	if m == nil {
		return
	}
	m.nodeDispatches.Add(ctx, 1, metric.WithAttributes(attribute.String("node", nodeID)))
}

// NodeRetried records a failed attempt that will be dispatched again.
func (m *EngineMetrics) NodeRetried(ctx context.Context, nodeID, code string) {
	if m == nil {
		return
	}
	m.nodeRetries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node", nodeID),
		attribute.String("code", code),
	))
}

// NodeCompleted records an applied completion and its duration.
func (m *EngineMetrics) NodeCompleted(ctx context.Context, nodeID, status string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("node", nodeID), attribute.String("status", status))
	m.nodeOutcomes.Add(ctx, 1, attrs)
	m.nodeDuration.Record(ctx, d.Seconds(), attrs)
}

// StaleCompletion records a completion that was ignored.
func (m *EngineMetrics) StaleCompletion(ctx context.Context, nodeID string) {
	if m == nil {
		return
	}
	m.staleCompletions.Add(ctx, 1, metric.WithAttributes(attribute.String("node", nodeID)))
}
