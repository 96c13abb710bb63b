package kafka

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kbukum/mediaflow/component"
	"github.com/kbukum/mediaflow/logger"
)

type mockProducer struct {
	closed atomic.Bool
}

func (m *mockProducer) Close() error {
	m.closed.Store(true)
	return nil
}

type mockRunner struct {
	topic      string
	consumed   atomic.Bool
	closeCalls atomic.Int32
}

func (m *mockRunner) Consume(ctx context.Context) error {
	m.consumed.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockRunner) Close() error {
	m.closeCalls.Add(1)
	return nil
}

func (m *mockRunner) Topic() string { return m.topic }

func TestComponent_Describe(t *testing.T) {
	comp := NewComponent(Config{Brokers: []string{"b1:9092"}, EventsTopic: "mediaflow.executions"}, logger.Nop())
	comp.AddRunner(&mockRunner{topic: "s3.object-created"})

	desc := comp.Describe()
	if desc.Type != "kafka" || comp.Name() != "kafka" {
		t.Errorf("unexpected description %+v", desc)
	}
	for _, want := range []string{"b1:9092", "group=mediaflow", "topic=s3.object-created", "events=mediaflow.executions"} {
		if !strings.Contains(desc.Details, want) {
			t.Errorf("Details %q missing %q", desc.Details, want)
		}
	}
}

func TestComponent_StartStop(t *testing.T) {
	comp := NewComponent(Config{}, logger.Nop())
	r := &mockRunner{topic: "test"}
	comp.AddRunner(r)
	p := &mockProducer{}
	comp.SetProducer(p)

	// Cancelling the start context must not stop the loops.
	ctx, cancel := context.WithCancel(context.Background())
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("double Start() error: %v", err)
	}
	cancel()

	if err := comp.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if !r.consumed.Load() {
		t.Error("runner should have consumed")
	}
	if r.closeCalls.Load() != 1 {
		t.Errorf("runner Close() called %d times, want 1", r.closeCalls.Load())
	}
	if !p.closed.Load() {
		t.Error("producer should have been closed")
	}
	if err := comp.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() should be a no-op: %v", err)
	}
}

func TestComponent_Health_NotRunning(t *testing.T) {
	comp := NewComponent(Config{}, logger.Nop())
	if got := comp.Health(context.Background()).Status; got != component.StatusUnhealthy {
		t.Errorf("Health().Status = %q, want unhealthy", got)
	}
}
