package bootstrap

import (
	"time"

	"github.com/kbukum/mediaflow/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout time.Duration
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{gracefulTimeout: 15 * time.Second}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger. By default one is built from the config's
// logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithGracefulTimeout bounds shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		if d > 0 {
			o.gracefulTimeout = d
		}
	}
}
