// Package api implements the mediaflow control surface: starting,
// inspecting and cancelling executions, delivering node completions from
// remote analysis services and accepting S3 Object Created notifications.
//
// Routes (all under /v1):
//
//	POST /executions              start an execution for an object
//	GET  /executions/:id          execution snapshot
//	POST /executions/:id/cancel   cancel a running execution
//	POST /callbacks               completion of a node attempt
//	POST /events/s3               raw S3 Object Created envelope
package api
