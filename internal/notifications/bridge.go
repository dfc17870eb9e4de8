package notifications

import (
	"context"
	"log/slog"

	"vestry/internal/engine"
	"vestry/internal/logging"
)

// RunNotifier bridges the engine's milestone hooks onto the notification
// service. Delivery failures are logged, never surfaced to the run.
type RunNotifier struct {
	service Service
	logger  *slog.Logger
}

// NewRunNotifier wraps a service for use as an engine notifier.
func NewRunNotifier(service Service, logger *slog.Logger) *RunNotifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RunNotifier{service: service, logger: logger}
}

func (r *RunNotifier) RunStarted(ctx context.Context, eventID string, planned []string) {
	if err := r.service.NotifyRunStarted(ctx, eventID, len(planned)); err != nil {
		r.logger.Warn("run-started notification failed", logging.Error(err))
	}
}

func (r *RunNotifier) ModuleFailed(ctx context.Context, eventID, module, detail string) {
	if err := r.service.NotifyModuleFailed(ctx, eventID, module, detail); err != nil {
		r.logger.Warn("module-failed notification failed", logging.Error(err))
	}
}

func (r *RunNotifier) RunFinished(ctx context.Context, eventID string, report engine.RunReport) {
	duration := report.FinishedAt.Sub(report.StartedAt)
	err := r.service.NotifyRunFinished(ctx, eventID, string(report.Outcome), len(report.Executed), len(report.Failed), duration)
	if err != nil {
		r.logger.Warn("run-finished notification failed", logging.Error(err))
	}
}

var _ engine.Notifier = (*RunNotifier)(nil)
