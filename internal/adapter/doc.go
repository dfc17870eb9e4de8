// Package adapter defines the contract between the execution engine and the
// external tools that implement each processing module, plus the two built-in
// implementations: an exec adapter that drives a configured command over a
// JSON stdin/stdout protocol, and a stub used for tests and unconfigured
// modules.
package adapter
