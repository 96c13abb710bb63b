package engine

import (
	"fmt"
	"time"
)

// Config tunes the orchestrator.
type Config struct {
	// DefaultTimeout bounds job attempts whose node sets no timeout.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	// ControllerTimeout bounds start and aggregate steps whose node sets no timeout.
	ControllerTimeout time.Duration `mapstructure:"controller_timeout"`
	// SweepInterval is how often Run looks for expired deadlines and due retries.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// TokenSecret signs callback tokens. Every instance must share it.
	TokenSecret string `mapstructure:"token_secret"`
	// TokenGrace keeps a callback token valid for a while after its deadline.
	TokenGrace time.Duration `mapstructure:"token_grace"`
	// CallbackURL is handed to remote services for completion delivery.
	CallbackURL string `mapstructure:"callback_url"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 10 * time.Minute
	}
	if c.ControllerTimeout <= 0 {
		c.ControllerTimeout = 5 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 30 * time.Second
	}
	if c.TokenGrace <= 0 {
		c.TokenGrace = time.Hour
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if len(c.TokenSecret) < 16 {
		return fmt.Errorf("engine token_secret must be at least 16 characters")
	}
	return nil
}
