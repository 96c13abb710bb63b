// Package server hosts the mediaflow HTTP control surface on gin, wrapped in
// h2c so HTTP/2 clients can talk to it without TLS.
//
// Built-in middleware (server/middleware): panic recovery, request ids,
// request logging and body size limits. Built-in endpoints (server/endpoint):
// /health, /ready and /version.
package server
