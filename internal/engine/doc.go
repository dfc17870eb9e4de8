// Package engine runs workflow modules for an event. A run holds the
// per-event execution lock, executes the planned modules strictly in
// order through their adapters, records every result, and derives the
// run outcome from the event's final state. Adapter failures are data,
// not errors: they are recorded and the run continues with whatever
// modules remain unblocked.
package engine
