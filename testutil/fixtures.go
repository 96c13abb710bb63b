package testutil

import (
	"testing"
	"time"

	"github.com/kbukum/mediaflow/execution"
	"github.com/kbukum/mediaflow/resilience"
	"github.com/kbukum/mediaflow/storage/memory"
	"github.com/kbukum/mediaflow/workflow"
)

// Bucket is the bucket used by fixtures.
const Bucket = "media-analysis"

// Trigger returns an arrival notification for key in Bucket.
func Trigger(key string) execution.Trigger {
	return execution.Trigger{
		ObjectRef: execution.ObjectRef{Bucket: Bucket, Key: key},
		Timestamp: Epoch,
	}
}

// Definition returns the built-in sentiment analysis definition with
// millisecond backoffs, so retries are due as soon as the clock moves.
func Definition() *workflow.Definition {
	d := workflow.SentimentAnalysis()
	for i := range d.Nodes {
		d.Nodes[i].Retry.Backoff = resilience.Backoff{Initial: time.Millisecond, Max: time.Millisecond, Factor: 1}
	}
	return d
}

// Graph builds d, or Definition() when d is nil.
func Graph(t testing.TB, d *workflow.Definition) *workflow.Graph {
	t.Helper()
	if d == nil {
		d = Definition()
	}
	g, err := d.Build()
	if err != nil {
		t.Fatalf("building graph: %v", err)
	}
	return g
}

// MediaStorage returns a memory storage holding a small object at each key.
func MediaStorage(t testing.TB, keys ...string) *memory.Storage {
	t.Helper()
	s := memory.New()
	for _, key := range keys {
		s.Put(key, []byte("\x00\x00\x00\x18ftypmp42"))
	}
	return s
}
