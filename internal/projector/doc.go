// Package projector derives an event's overall status from stored
// module results. Status is never stored; it is recomputed on demand so
// it can never drift from the results that justify it.
package projector
