package engine

import (
	"context"
	"time"

	"vestry/internal/logging"
	"vestry/internal/runlog"
)

// Reconcile clears run locks left behind by an unclean shutdown. A lock
// whose heartbeat is older than the configured timeout has no live run
// behind it: the lock is removed, the event's run marker is forced to
// failed so its history stays consistent, and the anomaly is logged.
// Results already recorded by the interrupted run are kept.
func (e *Engine) Reconcile(ctx context.Context) (int, error) {
	timeout := time.Duration(e.cfg.Workflow.HeartbeatTimeout) * time.Second
	if timeout <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-timeout)
	reclaimed, err := e.store.ReclaimStaleLocks(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, lock := range reclaimed {
		e.logger.Warn("recovered stale run lock",
			logging.String(logging.FieldEventID, lock.EventID),
			logging.String(logging.FieldRunID, lock.RunID),
			logging.String("acquired_at", lock.AcquiredAt.Format(time.RFC3339)),
			logging.String("heartbeat_at", lock.HeartbeatAt.Format(time.RFC3339)))
		state, ok, err := runlog.ReadRunState(e.layout, lock.EventID)
		if err != nil {
			e.logger.Error("read run state during reconciliation failed",
				logging.String(logging.FieldEventID, lock.EventID),
				logging.Error(err))
			continue
		}
		if !ok || state.RunID != lock.RunID || state.Phase != runlog.PhaseRunning {
			continue
		}
		state.Phase = runlog.PhaseFailed
		state.FinishedAt = time.Now().UTC()
		if err := runlog.WriteRunState(e.layout, state); err != nil {
			e.logger.Error("write run state during reconciliation failed",
				logging.String(logging.FieldEventID, lock.EventID),
				logging.Error(err))
		}
	}
	return len(reclaimed), nil
}
