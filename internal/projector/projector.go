package projector

import (
	"vestry/internal/event"
)

// Project derives an event's overall status from its stored module
// results and whether a run currently holds the event's execution lock.
// It is a pure function: callers may invoke it as often as they like and
// it never mutates the event.
//
// Rules, first match wins:
//  1. A run holds the execution lock: processing.
//  2. Enabled modules exist but none was ever attempted: pending.
//  3. An enabled module failed and no enabled module has ever
//     succeeded: failed.
//  4. An enabled module failed or was skipped: partial.
//  5. Every enabled module succeeded (vacuously true when nothing is
//     enabled): completed.
//  6. Otherwise: pending.
func Project(evt *event.Event, lockHeld bool) event.OverallStatus {
	if lockHeld {
		return event.StatusProcessing
	}
	enabled := evt.EnabledModules()
	if len(evt.Results) == 0 && len(enabled) > 0 {
		return event.StatusPending
	}

	var anyFailed, anySkipped, anySucceeded bool
	allSucceeded := true
	for _, name := range enabled {
		res, ok := evt.Result(name)
		if !ok {
			allSucceeded = false
			continue
		}
		switch res.Status {
		case event.ResultFailed:
			anyFailed = true
			allSucceeded = false
		case event.ResultSkipped:
			anySkipped = true
			allSucceeded = false
		case event.ResultSucceeded:
			anySucceeded = true
		default:
			allSucceeded = false
		}
	}

	switch {
	case anyFailed && !anySucceeded:
		return event.StatusFailed
	case anyFailed || anySkipped:
		return event.StatusPartial
	case allSucceeded:
		return event.StatusCompleted
	default:
		return event.StatusPending
	}
}
