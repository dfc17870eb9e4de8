// Package main hosts the vestry CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC
// calls against the daemon: event registration and editing, workflow
// runs, status reporting, log tailing, and configuration scaffolding.
// It centralizes configuration resolution and socket discovery so
// subcommands can focus on presentation.
package main
