package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vestry/internal/adapter"
	"vestry/internal/event"
	"vestry/internal/logging"
	"vestry/internal/planner"
	"vestry/internal/runlog"
	"vestry/internal/services"
)

// executePlan drives the plan steps. Skip steps determined at planning
// time are recorded first so runtime dependency checks see them; run
// steps then execute strictly in order. Cancellation is honored only at
// module boundaries.
func (e *Engine) executePlan(ctx context.Context, logger *slog.Logger, evt *event.Event, plan planner.Plan, report *RunReport) error {
	runID := report.RunID
	for _, step := range plan.Steps {
		if step.Action != planner.ActionSkip {
			continue
		}
		if err := e.recordSkip(ctx, evt, runID, step.Module, step.Reason); err != nil {
			return err
		}
		report.Skipped = append(report.Skipped, step.Module)
		logger.Info("module skipped",
			logging.String(logging.FieldModule, step.Module),
			logging.String("reason", string(step.Reason)))
	}

	for _, step := range plan.Steps {
		if step.Action != planner.ActionRun {
			continue
		}
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled at module boundary",
				logging.String(logging.FieldModule, step.Module))
			return err
		}
		if blocked, blocker, reason := e.blockedBy(evt, step.Module); blocked {
			if err := e.recordSkip(ctx, evt, runID, step.Module, reason); err != nil {
				return err
			}
			report.Skipped = append(report.Skipped, step.Module)
			logger.Info("module skipped",
				logging.String(logging.FieldModule, step.Module),
				logging.String("reason", string(reason)),
				logging.String("blocked_by", blocker))
			continue
		}
		res, err := e.runModule(ctx, logger, evt, runID, step.Module)
		if err != nil {
			return err
		}
		if res.Status == event.ResultSucceeded {
			report.Executed = append(report.Executed, step.Module)
		} else {
			report.Failed = append(report.Failed, step.Module)
		}
		e.touchRunState(logger, report)
	}
	return nil
}

// touchRunState refreshes the on-disk marker after a module completes so
// an interrupted run leaves evidence of its progress. Failures are
// logged, never fatal.
func (e *Engine) touchRunState(logger *slog.Logger, report *RunReport) {
	completed := make([]string, 0, len(report.Executed)+len(report.Failed))
	completed = append(completed, report.Executed...)
	completed = append(completed, report.Failed...)
	err := runlog.WriteRunState(e.layout, runlog.RunState{
		RunID:     report.RunID,
		EventID:   report.EventID,
		Phase:     runlog.PhaseRunning,
		Planned:   report.Planned,
		Completed: completed,
		StartedAt: report.StartedAt,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		logger.Warn("refresh run state failed", logging.Error(err))
	}
}

// blockedBy reports whether an enabled prerequisite of the module has a
// latest result other than succeeded, and the skip reason the dependent
// inherits. A prerequisite that was itself skipped for a missing
// dependency passes that reason through; anything else counts as a
// failed dependency.
func (e *Engine) blockedBy(evt *event.Event, module string) (bool, string, event.SkipReason) {
	desc, _ := e.registry.Describe(module)
	for _, p := range desc.Prerequisites {
		if !evt.Enabled(p.Name) {
			continue
		}
		res, ok := evt.Result(p.Name)
		if !ok || res.Status != event.ResultSucceeded {
			reason := event.SkipDependencyFailed
			if ok && res.Status == event.ResultSkipped && res.SkipReason == event.SkipMissingDependency {
				reason = event.SkipMissingDependency
			}
			return true, p.Name, reason
		}
	}
	return false, "", ""
}

// runModule invokes one adapter and records the outcome. Adapter
// failures are captured in the result, never returned; only store or
// filesystem errors propagate.
func (e *Engine) runModule(ctx context.Context, logger *slog.Logger, evt *event.Event, runID, module string) (event.ModuleResult, error) {
	desc, _ := e.registry.Describe(module)
	moduleLogger := logger.With(logging.String(logging.FieldModule, module))
	moduleLogger.Info("module started", logging.String(logging.FieldEventType, "module_start"))

	attempts := 1
	if prior, ok := evt.Result(module); ok {
		attempts = prior.Attempts + 1
	}
	res := event.ModuleResult{
		Module:    module,
		StartedAt: time.Now().UTC(),
		Attempts:  attempts,
	}

	// Run cancellation takes effect between modules, never inside one.
	// The adapter context and the result write below are shielded so an
	// in-flight module finishes (or times out) and is always recorded.
	moduleCtx := context.WithoutCancel(ctx)
	execCtx := services.WithModule(moduleCtx, module)
	cancel := context.CancelFunc(func() {})
	if desc.Timeout > 0 {
		execCtx, cancel = context.WithTimeout(execCtx, desc.Timeout)
	}
	out, execErr := desc.Adapter.Execute(execCtx, e.buildRequest(evt, module))
	cancel()

	res.FinishedAt = time.Now().UTC()
	if execErr != nil {
		res.Status = event.ResultFailed
		res.ErrorKind = errorKind(execErr)
		res.ErrorDetail = execErr.Error()
		moduleLogger.Error("module failed",
			logging.String(logging.FieldEventType, "module_finish"),
			logging.String("error_kind", res.ErrorKind),
			logging.Error(execErr))
		e.notifier.ModuleFailed(moduleCtx, evt.ID, module, res.ErrorDetail)
	} else {
		res.Status = event.ResultSucceeded
		res.OutputFiles = out.OutputFiles
		moduleLogger.Info("module succeeded",
			logging.String(logging.FieldEventType, "module_finish"),
			logging.Duration("duration", res.FinishedAt.Sub(res.StartedAt)),
			logging.Int("output_files", len(out.OutputFiles)))
	}

	if err := e.saveResult(moduleCtx, evt, runID, res); err != nil {
		return res, err
	}
	return res, nil
}

func (e *Engine) buildRequest(evt *event.Event, module string) adapter.Request {
	desc, _ := e.registry.Describe(module)
	prior := make(map[string][]string)
	for _, p := range desc.Prerequisites {
		if res, ok := evt.Result(p.Name); ok && res.Status == event.ResultSucceeded && len(res.OutputFiles) > 0 {
			prior[p.Name] = res.OutputFiles
		}
	}
	if len(prior) == 0 {
		prior = nil
	}
	return adapter.Request{
		EventID:      evt.ID,
		Metadata:     evt.Metadata,
		InputFiles:   evt.Inputs,
		PriorOutputs: prior,
		Options:      e.cfg.ModuleFor(module).Options,
		OutputDir:    e.layout.OutputDir(evt.ID),
		AssetsDir:    e.cfg.Paths.AssetsDir,
		ArchiveDir:   e.cfg.Paths.ArchiveDir,
	}
}

func (e *Engine) recordSkip(ctx context.Context, evt *event.Event, runID, module string, reason event.SkipReason) error {
	attempts := 0
	if prior, ok := evt.Result(module); ok {
		attempts = prior.Attempts
	}
	now := time.Now().UTC()
	res := event.ModuleResult{
		Module:     module,
		Status:     event.ResultSkipped,
		SkipReason: reason,
		StartedAt:  now,
		FinishedAt: now,
		Attempts:   attempts,
	}
	return e.saveResult(ctx, evt, runID, res)
}

// saveResult writes a module result to the store and the event's logs
// directory and refreshes the in-memory view used by later modules.
func (e *Engine) saveResult(ctx context.Context, evt *event.Event, runID string, res event.ModuleResult) error {
	if err := e.store.SaveModuleResult(ctx, evt.ID, res); err != nil {
		return err
	}
	if err := runlog.WriteModuleResult(e.layout, evt.ID, runID, res); err != nil {
		return err
	}
	if evt.Results == nil {
		evt.Results = make(map[string]event.ModuleResult)
	}
	evt.Results[res.Module] = res
	return nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, services.ErrTimeout):
		return "timeout"
	case errors.Is(err, services.ErrExternalTool):
		return "adapter"
	case errors.Is(err, services.ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}
