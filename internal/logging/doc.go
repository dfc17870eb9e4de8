// Package logging centralizes slog construction and the structured field
// conventions used across vestry.
//
// Loggers are built from config (console or JSON format, optional log file in
// the configured log directory). Context helpers stamp event, module, and run
// identifiers so every record emitted during a workflow run carries enough
// correlation data to reconstruct what happened.
package logging
