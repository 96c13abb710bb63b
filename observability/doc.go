// Package observability wires OpenTelemetry tracing and metrics.
//
// InitTracer and InitMeter install global OTLP HTTP providers; until they are
// called the global no-op providers are used, so StartSpan and EngineMetrics
// are always safe to call.
package observability
