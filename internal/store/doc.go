// Package store persists events, module results, and per-event run locks in
// SQLite. It is the single shared mutable resource in the system: all module
// result writes flow through the execution engine into this package, and the
// run_locks table doubles as the durable at-most-one-run-per-event guard that
// survives process restarts.
package store
