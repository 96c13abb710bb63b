package resilience

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Rate is the number of calls allowed per second. Zero disables limiting.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
	// Burst is the maximum burst size.
	Burst int `yaml:"burst" mapstructure:"burst"`
}

// RateLimiter paces calls to a backend.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter. A non-positive rate yields an unlimited one.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Rate <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow reports whether a call may proceed now.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}
