// Package logger provides structured logging on top of zerolog.
//
// Loggers are scoped rather than global: every component receives a
// *Logger and narrows it with WithComponent, WithExecution and WithNode so
// each line carries the execution and node it belongs to.
//
//	logging:
//	  level: "info"
//	  format: "json"
package logger
