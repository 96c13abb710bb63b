// Package trigger turns arrival notifications into executions.
//
// Notifications arrive as S3 "Object Created" events, either pushed over
// HTTP or read from a Kafka topic. The Adapter parses them, drops events
// outside the configured bucket and input prefix, and starts one execution
// per object. Redelivered notifications for an object already in flight are
// logged and ignored.
package trigger
