// Package notifications delivers run milestones through ntfy. With no
// topic configured every notification is a no-op, so callers never need
// to branch on whether notifications are enabled.
package notifications
