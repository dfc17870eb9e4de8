package store

import "errors"

var (
	// ErrEventNotFound indicates the referenced event does not exist.
	ErrEventNotFound = errors.New("event not found")
	// ErrEventExists indicates an insert collided with an existing event id.
	ErrEventExists = errors.New("event already exists")
	// ErrRunActive indicates a run lock is already held for the event.
	ErrRunActive = errors.New("run already active")
	// ErrLockNotHeld indicates a release or heartbeat referenced a lock the
	// caller does not hold.
	ErrLockNotHeld = errors.New("run lock not held")
)
