package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vestry/internal/config"
	"vestry/internal/event"
	"vestry/internal/logging"
	"vestry/internal/planner"
	"vestry/internal/projector"
	"vestry/internal/registry"
	"vestry/internal/runlog"
	"vestry/internal/services"
	"vestry/internal/store"
)

// Engine executes runs: it plans the module sequence for an event,
// drives each adapter strictly in order, and records every result in
// the store and the event's logs directory.
type Engine struct {
	cfg      *config.Config
	store    *store.Store
	registry *registry.Registry
	layout   event.Layout
	logger   *slog.Logger
	notifier Notifier
}

// New builds an engine over the given store and module registry.
func New(cfg *config.Config, st *store.Store, reg *registry.Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		store:    st,
		registry: reg,
		layout:   event.NewLayout(cfg.Paths.EventsDir),
		logger:   logger.With(logging.String("component", "engine")),
		notifier: NopNotifier{},
	}
}

// SetNotifier installs the run milestone notifier. Nil restores the
// no-op notifier.
func (e *Engine) SetNotifier(n Notifier) {
	if n == nil {
		n = NopNotifier{}
	}
	e.notifier = n
}

// Options adjust one run.
type Options struct {
	// Force re-runs the named modules even when a prior succeeded
	// result would normally elide them.
	Force []string
	// ForceAll re-runs every enabled module.
	ForceAll bool
}

// Execute runs the workflow for one event. Modules execute strictly in
// plan order; a failure never aborts independent remaining modules but
// marks dependents skipped. The per-event run lock is released on every
// exit path.
func (e *Engine) Execute(ctx context.Context, eventID string, opts Options) (RunReport, error) {
	evt, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrEventNotFound) {
			return RunReport{}, services.Wrap(services.ErrNotFound, "", "execute", fmt.Sprintf("event %q", eventID), err)
		}
		return RunReport{}, err
	}
	if err := e.checkPreconditions(evt, opts); err != nil {
		return RunReport{}, err
	}

	runID := uuid.NewString()
	if err := e.store.AcquireRunLock(ctx, eventID, runID); err != nil {
		if errors.Is(err, store.ErrRunActive) {
			return RunReport{}, services.Wrap(services.ErrConcurrency, "", "execute", fmt.Sprintf("event %q already running", eventID), err)
		}
		return RunReport{}, err
	}
	releaseCtx := context.WithoutCancel(ctx)
	defer func() {
		if err := e.store.ReleaseRunLock(releaseCtx, eventID, runID); err != nil {
			e.logger.Error("release run lock failed",
				logging.String(logging.FieldEventID, eventID),
				logging.String(logging.FieldRunID, runID),
				logging.Error(err))
		}
	}()

	plan, err := planner.Build(e.registry, evt, planner.Options{Force: opts.Force, ForceAll: opts.ForceAll})
	if err != nil {
		return RunReport{}, err
	}

	runCtx := services.WithRunID(services.WithEventID(ctx, eventID), runID)
	logger := logging.WithContext(runCtx, e.logger)

	report := RunReport{
		EventID:   eventID,
		RunID:     runID,
		Planned:   plan.RunModules(),
		StartedAt: time.Now().UTC(),
	}

	if err := e.layout.Ensure(eventID); err != nil {
		return RunReport{}, err
	}
	if err := runlog.WriteRunState(e.layout, runlog.RunState{
		RunID:     runID,
		EventID:   eventID,
		Phase:     runlog.PhaseRunning,
		Planned:   report.Planned,
		StartedAt: report.StartedAt,
	}); err != nil {
		return RunReport{}, err
	}

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("planned", len(report.Planned)))
	e.notifier.RunStarted(runCtx, eventID, report.Planned)

	stopHeartbeat := e.startHeartbeat(runCtx, eventID, runID)
	runErr := e.executePlan(runCtx, logger, evt, plan, &report)
	stopHeartbeat()

	report.FinishedAt = time.Now().UTC()
	report.Status = projector.Project(evt, false)
	report.Outcome = outcomeForStatus(report.Status)
	if runErr != nil {
		report.Outcome = OutcomeFailed
	}

	completed := make([]string, 0, len(report.Executed)+len(report.Failed))
	completed = append(completed, report.Executed...)
	completed = append(completed, report.Failed...)
	if err := runlog.WriteRunState(e.layout, runlog.RunState{
		RunID:      runID,
		EventID:    eventID,
		Phase:      report.Outcome.phase(),
		Planned:    report.Planned,
		Completed:  completed,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}); err != nil {
		logger.Error("write run state failed", logging.Error(err))
	}

	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_finish"),
		logging.String("outcome", string(report.Outcome)),
		logging.Int("executed", len(report.Executed)),
		logging.Int("failed", len(report.Failed)),
		logging.Int("skipped", len(report.Skipped)))
	e.notifier.RunFinished(runCtx, eventID, report)

	return report, runErr
}

// checkPreconditions rejects a run before planning when the event is
// archived, its toggles reference unknown modules, or an enabled module
// needs input files the event does not have yet.
func (e *Engine) checkPreconditions(evt *event.Event, opts Options) error {
	if evt.Archived {
		return services.Wrap(services.ErrPrecondition, "", "execute", fmt.Sprintf("event %q is archived", evt.ID), nil)
	}
	if unknown := e.registry.Unknown(evt.EnabledModules()); len(unknown) > 0 {
		return services.Wrap(services.ErrPrecondition, unknown[0], "execute", fmt.Sprintf("unknown modules in toggles: %v", unknown), nil)
	}
	if unknown := e.registry.Unknown(opts.Force); len(unknown) > 0 {
		return services.Wrap(services.ErrPrecondition, unknown[0], "execute", fmt.Sprintf("unknown modules in force set: %v", unknown), nil)
	}
	if evt.HasInputs() {
		return nil
	}
	names := evt.EnabledModules()
	sort.Strings(names)
	for _, name := range names {
		desc, _ := e.registry.Describe(name)
		if !desc.NeedsInput {
			continue
		}
		if res, ok := evt.Result(name); ok && res.Status == event.ResultSucceeded {
			continue
		}
		return services.Wrap(services.ErrPrecondition, name, "execute", "module requires input files but the event has none", nil)
	}
	return nil
}

// startHeartbeat keeps the run lock fresh while modules execute. The
// returned stop function blocks until the updater goroutine exits.
func (e *Engine) startHeartbeat(ctx context.Context, eventID, runID string) func() {
	interval := time.Duration(e.cfg.Workflow.HeartbeatInterval) * time.Second
	if interval <= 0 {
		return func() {}
	}
	hbCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := e.store.UpdateRunHeartbeat(hbCtx, eventID, runID); err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					e.logger.Warn("heartbeat update failed",
						logging.String(logging.FieldEventID, eventID),
						logging.Error(err))
				}
			}
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func outcomeForStatus(status event.OverallStatus) Outcome {
	switch status {
	case event.StatusCompleted:
		return OutcomeCompleted
	case event.StatusFailed:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}
