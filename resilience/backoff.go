package resilience

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff describes an exponential backoff curve.
type Backoff struct {
	// Initial is the delay before the second attempt.
	Initial time.Duration `yaml:"initial" mapstructure:"initial"`
	// Max caps every delay.
	Max time.Duration `yaml:"max" mapstructure:"max"`
	// Factor multiplies the delay after each attempt.
	Factor float64 `yaml:"factor" mapstructure:"factor"`
	// Jitter spreads each delay by up to ±Jitter of its value (0.0 to 1.0).
	Jitter float64 `yaml:"jitter" mapstructure:"jitter"`
}

// DefaultBackoff returns 1s doubling up to 1m with 10% jitter.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial: time.Second,
		Max:     time.Minute,
		Factor:  2.0,
		Jitter:  0.1,
	}
}

func (b Backoff) withDefaults() Backoff {
	if b.Initial <= 0 {
		b.Initial = 100 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = 10 * time.Second
	}
	if b.Factor < 1 {
		b.Factor = 2.0
	}
	if b.Jitter < 0 {
		b.Jitter = 0
	}
	return b
}

// Delay returns the wait before the attempt that follows attempt.
// attempt is 1-based, so Delay(1) is Initial before jitter.
func (b Backoff) Delay(attempt int) time.Duration {
	b = b.withDefaults()
	if attempt < 1 {
		attempt = 1
	}

	d := float64(b.Initial) * math.Pow(b.Factor, float64(attempt-1))
	if b.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * b.Jitter
	}
	if d > float64(b.Max) {
		d = float64(b.Max)
	}
	if d < 0 {
		d = float64(b.Initial)
	}
	return time.Duration(d)
}
