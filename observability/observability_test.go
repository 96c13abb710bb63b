package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestEngineMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewEngineMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewEngineMetrics: %v", err)
	}

	ctx := context.Background()
	m.ExecutionStarted(ctx)
	m.NodeDispatched(ctx, "FaceDetectionJob")
	m.NodeRetried(ctx, "TranscriptionJob", "TIMEOUT")
	m.NodeCompleted(ctx, "FaceDetectionJob", "Succeeded", 20*time.Millisecond)
	m.StaleCompletion(ctx, "FaceDetectionJob")
	m.ExecutionFinished(ctx, "Succeeded")

	sums := collect(t, reader)
	want := map[string]int64{
		"workflow.executions.started":     1,
		"workflow.executions.finished":    1,
		"workflow.executions.active":      0,
		"workflow.node.dispatches":        1,
		"workflow.node.retries":           1,
		"workflow.node.outcomes":          1,
		"workflow.node.stale_completions": 1,
	}
	for name, v := range want {
		if sums[name] != v {
			t.Errorf("%s: expected %d, got %d", name, v, sums[name])
		}
	}
}

func TestEngineMetrics_NilSafe(t *testing.T) {
	var m *EngineMetrics
	ctx := context.Background()
	m.ExecutionStarted(ctx)
	m.ExecutionFinished(ctx, "Failed")
	m.NodeDispatched(ctx, "x")
	m.NodeRetried(ctx, "x", "TIMEOUT")
	m.NodeCompleted(ctx, "x", "Failed", time.Second)
	m.StaleCompletion(ctx, "x")
}

func TestStartSpan_NoopProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "workflow.test")
	SetSpanError(ctx, errors.New("boom"))
	span.End()
}

func TestConfigApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	if c.Endpoint != "localhost:4318" || c.SampleRate != 1.0 || c.Interval != 15*time.Second {
		t.Errorf("unexpected defaults %+v", c)
	}
}
