// Package logs reads the daemon log file incrementally for the CLI's
// log view, tracking byte offsets so repeated reads never duplicate or
// drop lines.
package logs
