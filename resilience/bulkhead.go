package resilience

import (
	"context"
	"errors"
	"time"
)

// ErrBulkheadFull is returned when no slot frees up within MaxWait.
var ErrBulkheadFull = errors.New("bulkhead is full")

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the maximum number of concurrent calls.
	MaxConcurrent int
	// MaxWait is how long Acquire waits for a slot. 0 fails immediately.
	MaxWait time.Duration
}

// Bulkhead bounds how many calls run at once against one backend.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	return &Bulkhead{config: config, sem: make(chan struct{}, config.MaxConcurrent)}
}

// Acquire takes a slot. Callers must Release it once their work ends.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}
	if b.config.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot taken by Acquire.
func (b *Bulkhead) Release() {
	<-b.sem
}

// InUse returns the number of slots currently in use.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}
