// Package runlog writes the per-event execution records kept under each
// event's logs directory: one JSON record per module execution and a
// run-level state marker. The store remains the source of truth; these
// files exist so an event directory explains itself and so startup can
// reconcile locks left behind by an unclean shutdown.
package runlog
