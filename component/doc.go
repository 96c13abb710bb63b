// Package component defines the lifecycle contract shared by mediaflow's
// infrastructure pieces (HTTP server, Redis, Kafka, storage, the engine's
// sweeper) and the Registry that starts them in order and stops them in
// reverse.
package component
