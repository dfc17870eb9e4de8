// Package ipc provides JSON-RPC over a Unix domain socket between the
// vestry CLI and the daemon. The server wraps the daemon facade; the
// client wraps net/rpc calls with typed request and response structs.
package ipc
