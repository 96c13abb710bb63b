package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/mediaflow/component"
	"github.com/kbukum/mediaflow/logger"
)

// healthProbe is the path checked by Health. It need not exist.
const healthProbe = ".health"

// Component wraps Storage and implements component.Component for lifecycle management.
type Component struct {
	storage     Storage
	cfg         Config
	providerCfg any
	log         *logger.Logger
}

// NewComponent creates a storage component for use with the component registry.
func NewComponent(cfg Config, providerCfg any, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg:         cfg,
		providerCfg: providerCfg,
		log:         log.WithComponent("storage"),
	}
}

// Storage returns the underlying Storage, or nil if not started.
func (c *Component) Storage() Storage {
	return c.storage
}

// Config returns the effective configuration.
func (c *Component) Config() Config {
	return c.cfg
}

var _ component.Component = (*Component)(nil)

// Name returns the component name.
func (c *Component) Name() string { return "storage" }

// Start initializes the storage backend.
func (c *Component) Start(_ context.Context) error {
	if !c.cfg.Enabled {
		c.log.Info("Storage component is disabled")
		return nil
	}

	s, err := New(c.cfg, c.providerCfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.storage = s
	return nil
}

// Stop releases the storage backend.
func (c *Component) Stop(_ context.Context) error {
	c.storage = nil
	return nil
}

// Health reports whether the backend answers a metadata request.
func (c *Component) Health(ctx context.Context) component.Health {
	if !c.cfg.Enabled {
		return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: "disabled"}
	}
	if c.storage == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "storage not initialized"}
	}
	if _, err := c.storage.Exists(ctx, healthProbe); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("health probe failed: %v", err),
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns a summary line for the startup log.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("provider=%s", c.cfg.Provider)
	if bp, ok := c.providerCfg.(BucketDescriber); ok {
		if b := bp.GetBucket(); b != "" {
			details += fmt.Sprintf(" bucket=%s", b)
		}
	}
	return component.Description{Name: "Storage", Type: "storage", Details: details}
}

// BucketDescriber is optionally implemented by provider configs that use a bucket.
type BucketDescriber interface {
	GetBucket() string
}
