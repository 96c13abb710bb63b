// Package resilience provides the fault-tolerance primitives used around
// analysis backends and storage: exponential backoff, in-process retry,
// circuit breaking, concurrency bulkheads and rate limiting.
//
// Backoff is also the shape of node retry policies; the orchestrator computes
// the next dispatch time with Backoff.Delay instead of sleeping.
package resilience
