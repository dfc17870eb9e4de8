package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RunLock describes an active or stale per-event execution lock.
type RunLock struct {
	EventID     string
	RunID       string
	AcquiredAt  time.Time
	HeartbeatAt time.Time
}

// AcquireRunLock inserts the per-event execution lock. Exactly one run may
// hold the lock at any instant; a second acquisition fails with ErrRunActive.
func (s *Store) AcquireRunLock(ctx context.Context, eventID, runID string) error {
	ctx = ensureContext(ctx)
	now := formatTime(time.Now())
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO run_locks (event_id, run_id, acquired_at, heartbeat_at) VALUES (?, ?, ?, ?)`,
		eventID, runID, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrRunActive, eventID)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		return fmt.Errorf("acquire run lock: %w", err)
	}
	return nil
}

// ReleaseRunLock removes the lock held by runID. Releasing a lock held by a
// different run is an error so a reclaimed run cannot clobber its successor.
func (s *Store) ReleaseRunLock(ctx context.Context, eventID, runID string) error {
	res, err := s.execWithRetry(
		ensureContext(ctx),
		`DELETE FROM run_locks WHERE event_id = ? AND run_id = ?`,
		eventID, runID,
	)
	if err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release run lock rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrLockNotHeld, eventID)
	}
	return nil
}

// UpdateRunHeartbeat refreshes the lock's liveness marker.
func (s *Store) UpdateRunHeartbeat(ctx context.Context, eventID, runID string) error {
	res, err := s.execWithRetry(
		ensureContext(ctx),
		`UPDATE run_locks SET heartbeat_at = ? WHERE event_id = ? AND run_id = ?`,
		formatTime(time.Now()), eventID, runID,
	)
	if err != nil {
		return fmt.Errorf("update run heartbeat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run heartbeat rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrLockNotHeld, eventID)
	}
	return nil
}

// ActiveRun returns the run currently holding the event's lock, if any.
func (s *Store) ActiveRun(ctx context.Context, eventID string) (RunLock, bool, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT event_id, run_id, acquired_at, heartbeat_at FROM run_locks WHERE event_id = ?`, eventID)
	lock, err := scanRunLock(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunLock{}, false, nil
		}
		return RunLock{}, false, fmt.Errorf("load run lock: %w", err)
	}
	return lock, true, nil
}

// ActiveRuns lists every held lock.
func (s *Store) ActiveRuns(ctx context.Context) ([]RunLock, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, run_id, acquired_at, heartbeat_at FROM run_locks ORDER BY acquired_at`)
	if err != nil {
		return nil, fmt.Errorf("list run locks: %w", err)
	}
	defer rows.Close()

	var locks []RunLock
	for rows.Next() {
		lock, err := scanRunLock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run lock: %w", err)
		}
		locks = append(locks, lock)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run locks: %w", err)
	}
	return locks, nil
}

// ReclaimStaleLocks deletes locks whose heartbeat predates the cutoff and
// returns them so the caller can log each recovered anomaly. Used at daemon
// startup to resolve locks stranded by a crash.
func (s *Store) ReclaimStaleLocks(ctx context.Context, cutoff time.Time) ([]RunLock, error) {
	ctx = ensureContext(ctx)
	locks, err := s.ActiveRuns(ctx)
	if err != nil {
		return nil, err
	}

	var stale []RunLock
	for _, lock := range locks {
		if lock.HeartbeatAt.After(cutoff) {
			continue
		}
		res, err := s.execWithRetry(
			ctx,
			`DELETE FROM run_locks WHERE event_id = ? AND run_id = ? AND heartbeat_at <= ?`,
			lock.EventID, lock.RunID, formatTime(cutoff),
		)
		if err != nil {
			return stale, fmt.Errorf("reclaim stale lock for %s: %w", lock.EventID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return stale, fmt.Errorf("reclaim stale lock rows: %w", err)
		}
		if affected > 0 {
			stale = append(stale, lock)
		}
	}
	return stale, nil
}

func scanRunLock(scanner interface{ Scan(dest ...any) error }) (RunLock, error) {
	var (
		eventID      string
		runID        string
		acquiredRaw  string
		heartbeatRaw string
	)
	if err := scanner.Scan(&eventID, &runID, &acquiredRaw, &heartbeatRaw); err != nil {
		return RunLock{}, err
	}
	return RunLock{
		EventID:     eventID,
		RunID:       runID,
		AcquiredAt:  parseTime(acquiredRaw),
		HeartbeatAt: parseTime(heartbeatRaw),
	}, nil
}
