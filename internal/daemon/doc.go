// Package daemon hosts the long-running vestry services: the event
// store, the module registry, and the execution engine. It enforces a
// single daemon instance per machine through a file lock and is the only
// layer the IPC surface talks to.
package daemon
