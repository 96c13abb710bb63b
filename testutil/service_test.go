package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kbukum/mediaflow/analysis"
	"github.com/kbukum/mediaflow/execution"
)

func TestService_RecordsAndResponds(t *testing.T) {
	var got []execution.Outcome
	cb := analysis.CompleterFunc(func(_ context.Context, token string, o execution.Outcome) error {
		if token != "tok" {
			return fmt.Errorf("unexpected token %q", token)
		}
		got = append(got, o)
		return nil
	})

	s := NewService("transcription").Respond(FailTimes(1, fmt.Errorf("busy"), map[string]any{"text": "hi"}))
	for attempt := 1; attempt <= 2; attempt++ {
		if _, err := s.Invoke(context.Background(), analysis.Request{Attempt: attempt, CallbackToken: "tok", Callback: cb}); err != nil {
			t.Fatalf("Invoke: %v", err)
		}
	}

	if len(s.Requests()) != 2 {
		t.Fatalf("expected 2 recorded requests, got %d", len(s.Requests()))
	}
	if !got[0].Failed() || got[1].Failed() || got[1].Output["text"] != "hi" {
		t.Errorf("unexpected outcomes %+v", got)
	}
}

func TestService_Reject(t *testing.T) {
	s := NewService("face-detection").RejectWith(fmt.Errorf("down"))
	if _, err := s.Invoke(context.Background(), analysis.Request{}); err == nil {
		t.Error("expected invoke error")
	}
	if _, ok := s.Last(); !ok {
		t.Error("rejected requests are still recorded")
	}
}

func TestClock(t *testing.T) {
	c := NewClock(time.Time{})
	if !c.Now().Equal(Epoch) {
		t.Errorf("expected epoch, got %v", c.Now())
	}
	c.Advance(time.Minute)
	if got := c.Now().Sub(Epoch); got != time.Minute {
		t.Errorf("expected one minute, got %v", got)
	}
}

func TestGraphFixture(t *testing.T) {
	g := Graph(t, nil)
	if g.Start() != "AnalysisStart" || g.Aggregation() != "StartAggregation" {
		t.Errorf("unexpected graph ends %s / %s", g.Start(), g.Aggregation())
	}
	n, _ := g.Node("TranscriptionJob")
	if d := n.Retry.Delay(2); d != time.Millisecond {
		t.Errorf("expected 1ms fixture backoff, got %v", d)
	}
}
