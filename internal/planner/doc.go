// Package planner turns an event's module toggles and recorded results
// into the ordered work list the engine executes. Plans are
// deterministic: the same event state and registry always produce the
// same step sequence.
package planner
