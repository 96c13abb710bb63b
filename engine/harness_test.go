package engine_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/mediaflow/analysis"
	"github.com/kbukum/mediaflow/controller"
	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/execution"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/provider"
	"github.com/kbukum/mediaflow/redis"
	"github.com/kbukum/mediaflow/storage/memory"
	"github.com/kbukum/mediaflow/testutil"
	"github.com/kbukum/mediaflow/workflow"
)

const secret = "0123456789abcdef-test-secret"

// countingController counts aggregate invocations.
type countingController struct {
	*controller.Controller
	aggregates atomic.Int32
}

func (c *countingController) Aggregate(ctx context.Context, exec *execution.Execution, node *workflow.JobNode) execution.Outcome {
	c.aggregates.Add(1)
	return c.Controller.Aggregate(ctx, exec, node)
}

type harness struct {
	t      *testing.T
	engine *engine.Engine
	store  execution.Store
	clock  *testutil.Clock
	media  *memory.Storage
	ctrl   *countingController

	faces, transcription, sentiment *testutil.Service

	mu     sync.Mutex
	events []engine.Event
}

type harnessOptions struct {
	def    *workflow.Definition
	redis  bool
	timers bool
}

func newHarness(t *testing.T, o harnessOptions) *harness {
	t.Helper()
	h := &harness{
		t:             t,
		clock:         testutil.NewClock(time.Time{}),
		media:         testutil.MediaStorage(t, "input/interview1.mp4", "input/interview2.mp4"),
		faces:         testutil.NewService("face-detection"),
		transcription: testutil.NewService("transcription"),
		sentiment:     testutil.NewService("sentiment-detection"),
	}
	g := testutil.Graph(t, o.def)

	opts := execution.Options{TTL: time.Hour, MaxConflicts: 100, Now: h.clock.Now}
	if o.redis {
		mini := miniredis.RunT(t)
		client, err := redis.New(redis.Config{Enabled: true, Addr: mini.Addr(), KeyPrefix: "test"}, logger.Nop())
		if err != nil {
			t.Fatalf("redis.New: %v", err)
		}
		t.Cleanup(func() { client.Close() })
		h.store = execution.NewRedisStore(client, opts)
	} else {
		h.store = execution.NewMemoryStore(opts)
	}

	ctrl, err := controller.New(g, h.media, controller.Config{Bucket: testutil.Bucket}, controller.WithClock(h.clock.Now))
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	h.ctrl = &countingController{Controller: ctrl}

	services := provider.NewRegistry[analysis.Service]()
	services.Register(h.faces)
	services.Register(h.transcription)
	services.Register(h.sentiment)

	e, err := engine.New(g, h.store, h.ctrl, services, engine.Config{TokenSecret: secret},
		engine.WithClock(h.clock.Now),
		engine.WithNotifier(engine.NotifierFunc(func(_ context.Context, ev engine.Event) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.events = append(h.events, ev)
			return nil
		})),
	)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if !o.timers {
		// Retries are driven by Sweep and the fake clock.
		e.Close()
	}
	t.Cleanup(e.Close)
	h.engine = e
	return h
}

// happy makes every service answer the interview scenario inline.
func (h *harness) happy() *harness {
	h.faces.Respond(testutil.Succeed(map[string]any{"faces": 3}))
	h.transcription.Respond(testutil.Succeed(map[string]any{"text": "I really enjoyed working here"}))
	h.sentiment.Respond(testutil.Succeed(map[string]any{"sentiment": "positive"}))
	return h
}

func (h *harness) start(key string) string {
	h.t.Helper()
	id, err := h.engine.Start(context.Background(), testutil.Trigger(key))
	if err != nil {
		h.t.Fatalf("Start(%s): %v", key, err)
	}
	return id
}

func (h *harness) status(id string) *execution.Execution {
	h.t.Helper()
	x, err := h.engine.Status(context.Background(), id)
	if err != nil {
		h.t.Fatalf("Status(%s): %v", id, err)
	}
	return x
}

// sweepAfter advances the clock by d and runs one sweep.
func (h *harness) sweepAfter(d time.Duration) int {
	h.t.Helper()
	h.clock.Advance(d)
	n, err := h.engine.Sweep(context.Background())
	if err != nil {
		h.t.Fatalf("Sweep: %v", err)
	}
	return n
}

func (h *harness) last(s *testutil.Service) analysis.Request {
	h.t.Helper()
	req, ok := s.Last()
	if !ok {
		h.t.Fatalf("%s received no request", s.Name())
	}
	return req
}

func (h *harness) eventsFor(id string) []engine.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []engine.Event
	for _, ev := range h.events {
		if ev.ExecutionID == id {
			out = append(out, ev)
		}
	}
	return out
}
