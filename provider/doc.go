// Package provider defines the backend contracts analysis adapters are built on.
//
// A backend is a RequestResponse[I, O]; cross-cutting behavior is layered with
// Middleware and Chain:
//
//	detector := provider.Chain(
//	    provider.WithTracing[In, Out]("analysis"),
//	    provider.WithLogging[In, Out](log),
//	    provider.WithCircuitBreaker[In, Out](cb),
//	)(rawDetector)
package provider
