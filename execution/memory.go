package execution

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/resilience"
)

type memoryEntry struct {
	data    []byte
	version int64
	key     string
	active  bool
	expires time.Time
}

// MemoryStore keeps encoded executions in process memory. It behaves like
// RedisStore, including conflict detection, and backs tests and single
// instance deployments.
type MemoryStore struct {
	opts Options

	mu      sync.Mutex
	entries map[string]*memoryEntry
	locks   map[string]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts Options) *MemoryStore {
	opts.applyDefaults()
	return &MemoryStore{
		opts:    opts,
		entries: make(map[string]*memoryEntry),
		locks:   make(map[string]string),
	}
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, e *Execution) error {
	data, err := encode(e)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := e.Input.IdempotencyKey()
	if owner, held := s.locks[key]; held {
		return errors.DuplicateExecution(key, owner)
	}
	if _, exists := s.entries[e.ID]; exists {
		return errors.Conflict("execution " + e.ID + " already exists")
	}
	if !e.Status.Terminal() {
		s.locks[key] = e.ID
	}
	s.entries[e.ID] = &memoryEntry{data: data, version: e.Version, key: key, active: !e.Status.Terminal()}
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Execution, error) {
	s.mu.Lock()
	entry, err := s.lookup(id)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return decode(entry.data)
}

// lookup returns a live entry. Callers hold s.mu.
func (s *MemoryStore) lookup(id string) (*memoryEntry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return nil, errors.NotFound("execution", id)
	}
	if !entry.expires.IsZero() && !s.opts.Now().Before(entry.expires) {
		delete(s.entries, id)
		return nil, errors.NotFound("execution", id)
	}
	return entry, nil
}

// Update implements Store. The update function runs without the lock held;
// the write only lands if nobody wrote in between.
func (s *MemoryStore) Update(ctx context.Context, id string, fn UpdateFunc) (*Execution, error) {
	return resilience.Retry(ctx, s.opts.conflictRetry(), func() (*Execution, error) {
		s.mu.Lock()
		entry, err := s.lookup(id)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		raw, version := entry.data, entry.version
		s.mu.Unlock()

		m, err := apply(raw, fn, s.opts.Now())
		if err != nil || m.unchanged {
			return m.execOrNil(), err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		current, ok := s.entries[id]
		if !ok || current.version != version {
			return nil, errors.Conflict("execution " + id + " changed concurrently")
		}
		current.data = m.data
		current.version = m.exec.Version
		if m.terminated {
			current.active = false
			if s.locks[current.key] == id {
				delete(s.locks, current.key)
			}
			if s.opts.TTL > 0 {
				current.expires = s.opts.Now().Add(s.opts.TTL)
			}
		}
		return m.exec, nil
	})
}

// ListActive implements Store.
func (s *MemoryStore) ListActive(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, entry := range s.entries {
		if entry.active {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *mutation) execOrNil() *Execution {
	if m == nil {
		return nil
	}
	return m.exec
}

var _ Store = (*MemoryStore)(nil)
