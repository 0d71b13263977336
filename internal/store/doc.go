// Package store provides abstractions for data persistence, including the
// TaskStore whose compare-and-set status transitions are the only
// serialization points in the task lifecycle engine.
package store
