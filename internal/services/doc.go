// Package services defines shared utilities consumed by the workflow engine
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp event IDs, module names, and run identifiers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the orchestrator's error taxonomy (precondition, planning,
//     concurrency, adapter).
//
// Use these helpers when wiring new module logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
