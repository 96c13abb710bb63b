package redis

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kbukum/mediaflow/component"
	"github.com/kbukum/mediaflow/logger"
)

const componentName = "redis"

// Component owns the connection behind the shared execution store. It is
// registered only when redis.enabled is set; without it executions live in
// process memory.
type Component struct {
	cfg    Config
	log    *logger.Logger
	client *Client

	// pool timeouts seen by the previous health check
	timeouts atomic.Uint32
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent returns an unstarted component. Client is nil until Start.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent(componentName)}
}

// Client returns the connection the execution store is built on.
func (c *Component) Client() *Client { return c.client }

func (c *Component) Name() string { return componentName }

// Start connects and refuses to continue if the server does not answer, so
// the engine is never wired to an unreachable store.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("execution store: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("execution store %s: %w", c.cfg.Addr, err)
	}
	c.client = client
	c.log.Info("Execution store connected", map[string]any{
		"addr":       c.cfg.Addr,
		"key_prefix": c.cfg.KeyPrefix,
	})
	return nil
}

func (c *Component) Stop(context.Context) error {
	return c.client.Close()
}

// Health is unhealthy when Redis does not answer and degraded when callers
// have waited out the pool timeout since the last check.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: componentName, Status: component.StatusHealthy}
	if c.client == nil {
		h.Status, h.Message = component.StatusUnhealthy, "not connected"
		return h
	}
	if err := c.client.Ping(ctx); err != nil {
		h.Status, h.Message = component.StatusUnhealthy, err.Error()
		return h
	}
	now := c.client.Unwrap().PoolStats().Timeouts
	if prev := c.timeouts.Swap(now); now > prev {
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("%d pool timeouts since last check", now-prev)
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Execution store",
		Type:    "redis",
		Details: fmt.Sprintf("redis://%s/%d prefix=%s pool=%d", c.cfg.Addr, c.cfg.DB, c.cfg.KeyPrefix, c.cfg.PoolSize),
	}
}
