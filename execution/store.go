package execution

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/resilience"
)

// ErrUnchanged may be returned by an update function to end the update
// without writing. Update then returns the current state and no error.
var ErrUnchanged = stderrors.New("execution unchanged")

// UpdateFunc mutates an execution inside a conditional update. It may run
// more than once when writers race, so it must not have side effects.
type UpdateFunc func(e *Execution) error

// Store persists executions. Implementations are safe for concurrent use by
// any number of engine instances.
type Store interface {
	// Create stores a new execution and claims its idempotency key. It fails
	// with DUPLICATE_EXECUTION while another execution holds the key.
	Create(ctx context.Context, e *Execution) error
	// Get returns a snapshot or NOT_FOUND.
	Get(ctx context.Context, id string) (*Execution, error)
	// Update applies fn atomically with respect to other writers of the same
	// execution and returns the stored result. Once the execution becomes
	// terminal its idempotency key is released and its TTL starts.
	Update(ctx context.Context, id string, fn UpdateFunc) (*Execution, error)
	// ListActive returns the ids of non-terminal executions.
	ListActive(ctx context.Context) ([]string, error)
}

// Options tunes a store.
type Options struct {
	// TTL is how long terminal executions are kept. Zero keeps them forever.
	TTL time.Duration
	// LockTTL bounds how long a RedisStore idempotency lock survives an
	// owner that never finishes. Defaults to 24h.
	LockTTL time.Duration
	// MaxConflicts bounds the retries of a racing Update.
	MaxConflicts int
	// Now is the clock used for UpdatedAt. Defaults to time.Now.
	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.MaxConflicts <= 0 {
		o.MaxConflicts = 16
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 24 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// conflictRetry retries only lost races; every other error is final.
func (o *Options) conflictRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts: o.MaxConflicts,
		Backoff:     resilience.Backoff{Initial: time.Millisecond, Max: 50 * time.Millisecond, Factor: 2, Jitter: 0.5},
		RetryIf: func(err error) bool {
			return errors.IsCode(err, errors.ErrCodeConflict)
		},
	}
}

// mutation is the outcome of applying an UpdateFunc to encoded state.
type mutation struct {
	exec       *Execution
	data       []byte
	unchanged  bool
	terminated bool
}

// apply decodes raw, runs fn and re-encodes the result with a bumped version.
func apply(raw []byte, fn UpdateFunc, now time.Time) (*mutation, error) {
	e, err := decode(raw)
	if err != nil {
		return nil, err
	}
	wasTerminal := e.Status.Terminal()
	version := e.Version

	if err := fn(e); err != nil {
		if stderrors.Is(err, ErrUnchanged) {
			current, derr := decode(raw)
			if derr != nil {
				return nil, derr
			}
			return &mutation{exec: current, unchanged: true}, nil
		}
		return nil, err
	}

	e.Version = version + 1
	e.UpdatedAt = now
	data, err := encode(e)
	if err != nil {
		return nil, err
	}
	return &mutation{exec: e, data: data, terminated: !wasTerminal && e.Status.Terminal()}, nil
}

func encode(e *Execution) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("encoding execution %s: %w", e.ID, err))
	}
	return data, nil
}

func decode(raw []byte) (*Execution, error) {
	var e Execution
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, errors.Internal(fmt.Errorf("decoding execution: %w", err))
	}
	return &e, nil
}
