package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/mediaflow/component"
)

// Start starts c and stops it when the test ends.
func Start(t testing.TB, c component.Component) {
	t.Helper()
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("failed to start component %s: %v", c.Name(), err)
	}
	t.Cleanup(func() {
		if err := c.Stop(ctx); err != nil {
			t.Errorf("failed to stop component %s: %v", c.Name(), err)
		}
	})
}

// Eventually polls cond until it holds or timeout elapses.
func Eventually(t testing.TB, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s: %s", timeout, msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
