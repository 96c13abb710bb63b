package execution

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/redis"
	"github.com/kbukum/mediaflow/workflow"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type storeFactory func(t *testing.T, opts Options) (Store, func(time.Duration))

func memoryFactory(t *testing.T, opts Options) (Store, func(time.Duration)) {
	c := &clock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	opts.Now = c.Now
	return NewMemoryStore(opts), c.Advance
}

func redisFactory(t *testing.T, opts Options) (Store, func(time.Duration)) {
	t.Helper()
	mini := miniredis.RunT(t)
	client, err := redis.New(redis.Config{Enabled: true, Addr: mini.Addr(), KeyPrefix: "test"}, logger.Nop())
	if err != nil {
		t.Fatalf("redis.New: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, opts), mini.FastForward
}

var factories = map[string]storeFactory{
	"memory": memoryFactory,
	"redis":  redisFactory,
}

func newExecution(t *testing.T, id, key string) *Execution {
	t.Helper()
	g, err := workflow.SentimentAnalysis().Build()
	if err != nil {
		t.Fatal(err)
	}
	trigger := Trigger{ObjectRef: ObjectRef{Bucket: "media", Key: key}}
	return New(id, trigger, g, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}

func forEachStore(t *testing.T, opts Options, fn func(t *testing.T, s Store, advance func(time.Duration))) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			s, advance := factory(t, opts)
			fn(t, s, advance)
		})
	}
}

func TestStore_CreateGet(t *testing.T) {
	forEachStore(t, Options{}, func(t *testing.T, s Store, _ func(time.Duration)) {
		ctx := context.Background()
		e := newExecution(t, "e1", "input/interview1.mp4")
		if err := s.Create(ctx, e); err != nil {
			t.Fatalf("Create: %v", err)
		}

		got, err := s.Get(ctx, "e1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if diff := cmp.Diff(e, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}

		if _, err := s.Get(ctx, "missing"); !errors.IsCode(err, errors.ErrCodeNotFound) {
			t.Errorf("expected NOT_FOUND, got %v", err)
		}
	})
}

func TestStore_DuplicateWhileInFlight(t *testing.T) {
	forEachStore(t, Options{}, func(t *testing.T, s Store, _ func(time.Duration)) {
		ctx := context.Background()
		if err := s.Create(ctx, newExecution(t, "e1", "input/a.mp4")); err != nil {
			t.Fatal(err)
		}

		err := s.Create(ctx, newExecution(t, "e2", "input/a.mp4"))
		if !errors.IsCode(err, errors.ErrCodeDuplicateExecution) {
			t.Fatalf("expected DUPLICATE_EXECUTION, got %v", err)
		}

		if err := s.Create(ctx, newExecution(t, "e3", "input/b.mp4")); err != nil {
			t.Fatalf("different key must not collide: %v", err)
		}

		if _, err := s.Update(ctx, "e1", func(e *Execution) error {
			e.Status = StatusSucceeded
			return nil
		}); err != nil {
			t.Fatal(err)
		}
		if err := s.Create(ctx, newExecution(t, "e4", "input/a.mp4")); err != nil {
			t.Fatalf("key should be free after the execution finished: %v", err)
		}
	})
}

func TestStore_Update(t *testing.T) {
	forEachStore(t, Options{}, func(t *testing.T, s Store, _ func(time.Duration)) {
		ctx := context.Background()
		if err := s.Create(ctx, newExecution(t, "e1", "input/a.mp4")); err != nil {
			t.Fatal(err)
		}

		updated, err := s.Update(ctx, "e1", func(e *Execution) error {
			e.Nodes["AnalysisStart"].Status = NodeSucceeded
			e.Nodes["AnalysisStart"].Output = map[string]any{"key": "input/a.mp4", "size": 10}
			return nil
		})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Version != 1 {
			t.Errorf("expected version 1, got %d", updated.Version)
		}

		got, _ := s.Get(ctx, "e1")
		if got.Nodes["AnalysisStart"].Status != NodeSucceeded {
			t.Error("update not persisted")
		}
		// encoded state decodes numbers as float64
		if got.Nodes["AnalysisStart"].Output["size"] != float64(10) {
			t.Errorf("unexpected output %v", got.Nodes["AnalysisStart"].Output)
		}

		same, err := s.Update(ctx, "e1", func(e *Execution) error {
			e.Status = StatusFailed
			return ErrUnchanged
		})
		if err != nil || same.Version != 1 || same.Status != StatusRunning {
			t.Errorf("ErrUnchanged must not write: %v %+v", err, same)
		}

		_, err = s.Update(ctx, "e1", func(e *Execution) error {
			return errors.AlreadyTerminal(e.ID, string(e.Status))
		})
		if !errors.IsCode(err, errors.ErrCodeAlreadyTerminal) {
			t.Errorf("update function errors must pass through, got %v", err)
		}

		if _, err := s.Update(ctx, "missing", func(*Execution) error { return nil }); !errors.IsCode(err, errors.ErrCodeNotFound) {
			t.Errorf("expected NOT_FOUND, got %v", err)
		}
	})
}

func TestStore_ConcurrentUpdatesAreSerialized(t *testing.T) {
	forEachStore(t, Options{MaxConflicts: 200}, func(t *testing.T, s Store, _ func(time.Duration)) {
		ctx := context.Background()
		if err := s.Create(ctx, newExecution(t, "e1", "input/a.mp4")); err != nil {
			t.Fatal(err)
		}

		const writers = 20
		var wg sync.WaitGroup
		for range writers {
			wg.Go(func() {
				_, err := s.Update(ctx, "e1", func(e *Execution) error {
					n := e.Nodes["FaceDetectionJob"]
					n.Attempts++
					return nil
				})
				if err != nil {
					t.Errorf("Update: %v", err)
				}
			})
		}
		wg.Wait()

		got, _ := s.Get(ctx, "e1")
		if got.Nodes["FaceDetectionJob"].Attempts != writers {
			t.Errorf("expected %d increments, got %d", writers, got.Nodes["FaceDetectionJob"].Attempts)
		}
		if got.Version != writers {
			t.Errorf("expected version %d, got %d", writers, got.Version)
		}
	})
}

func TestStore_ActiveAndTTL(t *testing.T) {
	forEachStore(t, Options{TTL: time.Hour}, func(t *testing.T, s Store, advance func(time.Duration)) {
		ctx := context.Background()
		for _, id := range []string{"e2", "e1"} {
			if err := s.Create(ctx, newExecution(t, id, "input/"+id+".mp4")); err != nil {
				t.Fatal(err)
			}
		}

		active, _ := s.ListActive(ctx)
		if diff := cmp.Diff([]string{"e1", "e2"}, active); diff != "" {
			t.Errorf("active mismatch (-want +got):\n%s", diff)
		}

		if _, err := s.Update(ctx, "e1", func(e *Execution) error {
			e.Status = StatusCancelled
			return nil
		}); err != nil {
			t.Fatal(err)
		}
		active, _ = s.ListActive(ctx)
		if diff := cmp.Diff([]string{"e2"}, active); diff != "" {
			t.Errorf("active mismatch (-want +got):\n%s", diff)
		}

		if _, err := s.Get(ctx, "e1"); err != nil {
			t.Fatalf("terminal execution should be readable until it expires: %v", err)
		}
		advance(2 * time.Hour)
		if _, err := s.Get(ctx, "e1"); !errors.IsCode(err, errors.ErrCodeNotFound) {
			t.Errorf("expected expiry, got %v", err)
		}
		if _, err := s.Get(ctx, "e2"); err != nil {
			t.Errorf("running executions never expire: %v", err)
		}
	})
}

func TestExecution_View(t *testing.T) {
	e := newExecution(t, "e1", "input/interview1.mp4")
	if e.Input.Name() != "interview1.mp4" {
		t.Errorf("unexpected name %q", e.Input.Name())
	}
	if v, ok := e.InputField("key"); !ok || v != "input/interview1.mp4" {
		t.Errorf("unexpected key %v", v)
	}
	if _, ok := e.InputField("size"); ok {
		t.Error("unknown input field must be absent")
	}

	e.Nodes["TranscriptionJob"].Output = map[string]any{"text": "hi"}
	if _, ok := e.OutputField("TranscriptionJob", "text"); ok {
		t.Error("output of a running node must not be visible")
	}
	e.Nodes["TranscriptionJob"].Status = NodeSucceeded
	if v, _ := e.OutputField("TranscriptionJob", "text"); v != "hi" {
		t.Errorf("unexpected text %v", v)
	}

	if diff := cmp.Diff([]string{"FaceDetectionJob", "SentimentDetectionJob"}, e.Branches["ParallelJobExecution"].Pending); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}
}

func newRedisStore(t *testing.T, opts Options) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client, err := redis.New(redis.Config{Enabled: true, Addr: mini.Addr(), KeyPrefix: "test"}, logger.Nop())
	if err != nil {
		t.Fatalf("redis.New: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, opts), mini
}

func TestRedisStore_CreateRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	s, mini := newRedisStore(t, Options{})

	// A wrong-typed active set makes SADD fail after the record was written.
	if err := mini.Set("test:active", "not-a-set"); err != nil {
		t.Fatal(err)
	}
	err := s.Create(ctx, newExecution(t, "exec-1", "input/a.mp4"))
	if !errors.IsCode(err, errors.ErrCodeStorage) {
		t.Fatalf("expected STORAGE_ERROR, got %v", err)
	}
	if mini.Exists("test:exec:exec-1") {
		t.Error("execution record left behind")
	}
	if mini.Exists("test:lock:media/input/a.mp4") {
		t.Error("idempotency lock left behind")
	}

	mini.Del("test:active")
	if err := s.Create(ctx, newExecution(t, "exec-2", "input/a.mp4")); err != nil {
		t.Fatalf("object should be startable again: %v", err)
	}
	active, _ := s.ListActive(ctx)
	if diff := cmp.Diff([]string{"exec-2"}, active); diff != "" {
		t.Errorf("active mismatch (-want +got):\n%s", diff)
	}
}

func TestRedisStore_LockHasTTL(t *testing.T) {
	s, mini := newRedisStore(t, Options{LockTTL: time.Hour})
	if err := s.Create(context.Background(), newExecution(t, "exec-1", "input/a.mp4")); err != nil {
		t.Fatal(err)
	}
	if ttl := mini.TTL("test:lock:media/input/a.mp4"); ttl <= 0 || ttl > time.Hour {
		t.Errorf("expected lock TTL within 1h, got %v", ttl)
	}
}

func TestRedisStore_ReclaimsOrphanedLock(t *testing.T) {
	ctx := context.Background()
	s, mini := newRedisStore(t, Options{})

	// Left by an instance that died between claiming the lock and writing.
	if err := mini.Set("test:lock:media/input/a.mp4", "ghost"); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(ctx, newExecution(t, "exec-1", "input/a.mp4")); err != nil {
		t.Fatalf("orphaned lock should be taken over: %v", err)
	}
	if owner, _ := mini.Get("test:lock:media/input/a.mp4"); owner != "exec-1" {
		t.Errorf("expected exec-1 to own the lock, got %q", owner)
	}

	// A live owner still blocks.
	err := s.Create(ctx, newExecution(t, "exec-2", "input/a.mp4"))
	if !errors.IsCode(err, errors.ErrCodeDuplicateExecution) {
		t.Fatalf("expected DUPLICATE_EXECUTION, got %v", err)
	}
}
