package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"vestry/internal/config"
	"vestry/internal/deps"
	"vestry/internal/engine"
	"vestry/internal/event"
	"vestry/internal/logging"
	"vestry/internal/notifications"
	"vestry/internal/projector"
	"vestry/internal/registry"
	"vestry/internal/store"
)

// Daemon owns the long-lived services and enforces single-instance
// execution through a file lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	registry *registry.Registry
	engine   *engine.Engine
	layout   event.Layout
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StoreDBPath  string
	LockFilePath string
	EventCounts  map[event.OverallStatus]int
	ActiveRuns   []store.RunLock
	Adapters     []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, reg *registry.Registry, eng *engine.Engine, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || reg == nil || eng == nil {
		return nil, errors.New("daemon requires config, store, registry, and engine")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "vestryd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String("component", "daemon")),
		store:    st,
		registry: reg,
		engine:   eng,
		layout:   event.NewLayout(cfg.Paths.EventsDir),
		logPath:  filepath.Join(cfg.Paths.LogDir, "vestry.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and reconciles run locks left behind
// by an unclean shutdown.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vestry daemon instance is already running")
	}

	reclaimed, err := d.engine.Reconcile(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reconcile run locks: %w", err)
	}
	if reclaimed > 0 {
		d.logger.Warn("recovered interrupted runs at startup", logging.Int("count", reclaimed))
	}

	d.running.Store(true)
	d.logger.Info("vestry daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("vestry daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Run executes the workflow for one event.
func (d *Daemon) Run(ctx context.Context, eventID string, force []string, forceAll bool) (engine.RunReport, error) {
	return d.engine.Execute(ctx, eventID, engine.Options{Force: force, ForceAll: forceAll})
}

// TestNotification sends a test push notification when ntfy is configured.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StoreDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		EventCounts:  make(map[event.OverallStatus]int),
		Adapters:     deps.CheckAdapters(d.cfg, d.registry.Names()),
	}
	events, err := d.store.ListEvents(ctx)
	if err != nil {
		d.logger.Warn("list events for status failed", logging.Error(err))
		return status
	}
	locks, err := d.store.ActiveRuns(ctx)
	if err != nil {
		d.logger.Warn("list active runs failed", logging.Error(err))
		locks = nil
	}
	held := make(map[string]bool, len(locks))
	for _, lock := range locks {
		held[lock.EventID] = true
	}
	status.ActiveRuns = locks
	for _, evt := range events {
		status.EventCounts[projector.Project(evt, held[evt.ID])]++
	}
	return status
}
