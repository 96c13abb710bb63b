// Package controller implements the task controller of the media analysis
// workflow: the start step that admits an input object and the aggregate
// step that merges branch outputs into the final result.
//
// Both steps are stateless. They read an execution snapshot and report an
// execution.Outcome; the engine applies it.
package controller
