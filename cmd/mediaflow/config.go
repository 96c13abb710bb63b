package main

import (
	"fmt"
	"time"

	"github.com/kbukum/mediaflow/analysis"
	"github.com/kbukum/mediaflow/config"
	"github.com/kbukum/mediaflow/controller"
	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/kafka"
	"github.com/kbukum/mediaflow/observability"
	"github.com/kbukum/mediaflow/redis"
	"github.com/kbukum/mediaflow/server"
	"github.com/kbukum/mediaflow/storage"
	"github.com/kbukum/mediaflow/storage/local"
	"github.com/kbukum/mediaflow/storage/s3"
	"github.com/kbukum/mediaflow/trigger"
)

// AppConfig is the daemon configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	// Workflow is a YAML graph definition. Empty uses the built-in
	// sentiment analysis graph.
	Workflow string `yaml:"workflow" mapstructure:"workflow"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Kafka         kafka.Config         `yaml:"kafka" mapstructure:"kafka"`
	Storage       StorageConfig        `yaml:"storage" mapstructure:"storage"`
	Engine        engine.Config        `yaml:"engine" mapstructure:"engine"`
	Executions    ExecutionsConfig     `yaml:"executions" mapstructure:"executions"`
	Trigger       trigger.Config       `yaml:"trigger" mapstructure:"trigger"`
	Controller    controller.Config    `yaml:"controller" mapstructure:"controller"`
	Analysis      analysis.Config      `yaml:"analysis" mapstructure:"analysis"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// StorageConfig selects the media backend and carries every provider's settings.
type StorageConfig struct {
	storage.Config `yaml:",inline" mapstructure:",squash"`
	Local          local.Config `yaml:"local" mapstructure:"local"`
	S3             s3.Config    `yaml:"s3" mapstructure:"s3"`
}

// ProviderConfig returns the settings of the selected provider.
func (c *StorageConfig) ProviderConfig() any {
	switch c.Provider {
	case storage.ProviderS3:
		return &c.S3
	case storage.ProviderLocal:
		return &c.Local
	}
	return nil
}

// ExecutionsConfig tunes the execution store.
type ExecutionsConfig struct {
	// TTL is how long finished executions stay queryable.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
	// MaxConflicts bounds retries of racing state updates.
	MaxConflicts int `yaml:"max_conflicts" mapstructure:"max_conflicts"`
	// LockTTL caps how long a crashed instance can block restarts of the same object.
	LockTTL time.Duration `yaml:"lock_ttl" mapstructure:"lock_ttl"`
}

// ApplyDefaults fills every section.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "mediaflow"
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Storage.Config.ApplyDefaults()
	c.Storage.Local.ApplyDefaults()
	c.Storage.S3.ApplyDefaults()
	c.Engine.ApplyDefaults()
	c.Trigger.ApplyDefaults()
	c.Controller.ApplyDefaults()
	c.Analysis.ApplyDefaults()
	c.Observability.ApplyDefaults()
	if c.Executions.TTL == 0 {
		c.Executions.TTL = 24 * time.Hour
	}
	if c.Executions.MaxConflicts == 0 {
		c.Executions.MaxConflicts = 32
	}
	if c.Engine.CallbackURL == "" {
		c.Engine.CallbackURL = fmt.Sprintf("http://localhost:%d/v1/callbacks", c.Server.Port)
	}
	if c.Controller.Bucket == "" {
		c.Controller.Bucket = c.Trigger.Bucket
	}
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"service", c.ServiceConfig.Validate},
		{"server", c.Server.Validate},
		{"redis", c.Redis.Validate},
		{"kafka", c.Kafka.Validate},
		{"storage", c.Storage.Config.Validate},
		{"engine", c.Engine.Validate},
		{"trigger", c.Trigger.Validate},
		{"controller", c.Controller.Validate},
		{"analysis", c.Analysis.Validate},
	}
	for _, check := range checks {
		if err := check.fn(); err != nil {
			return fmt.Errorf("%s: %w", check.name, err)
		}
	}
	switch c.Storage.Provider {
	case storage.ProviderS3:
		if err := c.Storage.S3.Validate(); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	case storage.ProviderLocal:
		if err := c.Storage.Local.Validate(); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}
	if c.Kafka.Enabled && c.Trigger.Topic == "" {
		return fmt.Errorf("trigger: topic is required when kafka is enabled")
	}
	return nil
}

func loadConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	opts := []config.LoaderOption{config.WithEnvPrefix("mediaflow")}
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if err := config.LoadConfig("mediaflow", &cfg, opts...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
