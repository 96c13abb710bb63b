package redis

import (
	"fmt"
	"time"
)

// Config holds Redis connection configuration.
type Config struct {
	// Enabled selects the Redis execution store. When false an in-memory store is used.
	Enabled bool `mapstructure:"enabled"`

	// Addr is the Redis server address (host:port).
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// KeyPrefix namespaces every key, e.g. "mediaflow".
	KeyPrefix string `mapstructure:"key_prefix"`

	// PoolSize is the maximum number of socket connections.
	PoolSize int `mapstructure:"pool_size"`

	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int `mapstructure:"min_idle_conns"`

	// MaxRetries is the maximum number of retries before giving up.
	MaxRetries int `mapstructure:"max_retries"`

	MinRetryBackoff string `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff string `mapstructure:"max_retry_backoff"`

	// DialTimeout is the timeout for establishing new connections (e.g. "5s").
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`

	// ConnMaxIdleTime is how long a connection may sit idle before being closed (e.g. "5m").
	ConnMaxIdleTime string `mapstructure:"idle_timeout"`

	// PoolTimeout is how long the client waits for a connection from the pool (e.g. "4s").
	PoolTimeout string `mapstructure:"pool_timeout"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "mediaflow"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MinRetryBackoff == "" {
		c.MinRetryBackoff = "8ms"
	}
	if c.MaxRetryBackoff == "" {
		c.MaxRetryBackoff = "512ms"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "3s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "3s"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be > 0")
	}
	for name, value := range map[string]string{
		"dial_timeout":  c.DialTimeout,
		"read_timeout":  c.ReadTimeout,
		"write_timeout": c.WriteTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}
	return nil
}
