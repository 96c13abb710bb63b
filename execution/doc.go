// Package execution holds the per-trigger state of a workflow run and the
// stores that share it between orchestrator instances.
//
// An Execution is only ever changed through Store.Update, which applies a
// function to the latest stored version and writes the result only if no
// other writer got there first. Losing writers re-read and re-apply, which
// makes every engine transition a single atomic check-and-set.
//
// Two stores are provided: MemoryStore for tests and single-process use, and
// RedisStore for replicated deployments.
package execution
