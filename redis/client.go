package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/mediaflow/logger"
)

// Client wraps a go-redis client with service logging.
type Client struct {
	rdb    *goredis.Client
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// New creates a new Redis client with the given configuration and logger.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is disabled")
	}

	opts := &goredis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		MaxRetries:      cfg.MaxRetries,
		DialTimeout:     duration(cfg.DialTimeout),
		ReadTimeout:     duration(cfg.ReadTimeout),
		WriteTimeout:    duration(cfg.WriteTimeout),
		MinRetryBackoff: duration(cfg.MinRetryBackoff),
		MaxRetryBackoff: duration(cfg.MaxRetryBackoff),
		ConnMaxIdleTime: duration(cfg.ConnMaxIdleTime),
		PoolTimeout:     duration(cfg.PoolTimeout),
	}

	rdb := goredis.NewClient(opts)

	log.Info("Redis client created", map[string]any{
		"addr":      cfg.Addr,
		"db":        cfg.DB,
		"pool_size": cfg.PoolSize,
	})

	return &Client{rdb: rdb, log: log, cfg: cfg}, nil
}

// duration parses s, returning zero (the go-redis default) for empty or bad values.
func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// KeyPrefix returns the configured namespace for keys written through this client.
func (c *Client) KeyPrefix() string {
	return c.cfg.KeyPrefix
}

// Ping verifies the Redis connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	pong, err := c.rdb.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if pong != "PONG" {
		return fmt.Errorf("unexpected redis ping response: %s", pong)
	}
	return nil
}

// Close closes the Redis connection. Safe to call multiple times.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.log.Info("Closing Redis connection")
	c.closed = true
	return c.rdb.Close()
}

// Unwrap returns the underlying go-redis client for transactions and scripts.
func (c *Client) Unwrap() *goredis.Client {
	return c.rdb
}
