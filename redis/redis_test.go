package redis

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/mediaflow/component"
	"github.com/kbukum/mediaflow/logger"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		errMsg string
	}{
		{name: "disabled skips checks", cfg: Config{}},
		{name: "missing addr", cfg: Config{Enabled: true}, errMsg: "addr is required"},
		{name: "bad timeout", cfg: Config{Enabled: true, Addr: "x:1", DialTimeout: "soon"}, errMsg: "invalid dial_timeout"},
		{name: "valid", cfg: Config{Enabled: true, Addr: "localhost:6379"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ApplyDefaults()
			err := tt.cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Fatalf("expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestNew_Disabled(t *testing.T) {
	if _, err := New(Config{}, logger.Nop()); err == nil {
		t.Fatal("expected error for disabled redis")
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	mini := miniredis.RunT(t)
	comp := NewComponent(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	ctx := context.Background()

	if h := comp.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if comp.Client().KeyPrefix() != "mediaflow" {
		t.Errorf("expected default prefix, got %q", comp.Client().KeyPrefix())
	}
	if h := comp.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %s: %s", h.Status, h.Message)
	}

	mini.Close()
	if h := comp.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy after server loss, got %s", h.Status)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := comp.Client().Close(); err != nil {
		t.Errorf("second Close should be a no-op: %v", err)
	}
}

func TestComponent_StartFailsWithoutServer(t *testing.T) {
	mini := miniredis.RunT(t)
	addr := mini.Addr()
	mini.Close()

	comp := NewComponent(Config{Enabled: true, Addr: addr, DialTimeout: "100ms"}, logger.Nop())
	if err := comp.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail against a stopped server")
	}
	if comp.Client() != nil {
		t.Error("client must stay nil after a failed start")
	}
	if err := comp.Stop(context.Background()); err != nil {
		t.Errorf("Stop after failed start: %v", err)
	}
}

func TestComponent_Describe(t *testing.T) {
	comp := NewComponent(Config{Enabled: true, Addr: "cache:6379", DB: 2}, logger.Nop())
	d := comp.Describe()
	if d.Type != "redis" || !strings.HasPrefix(d.Details, "redis://cache:6379/2 prefix=mediaflow") {
		t.Errorf("unexpected description %+v", d)
	}
}
