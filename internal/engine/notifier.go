package engine

import "context"

// Notifier receives run milestones. Implementations must not block for
// long; the engine calls them inline between module executions.
type Notifier interface {
	RunStarted(ctx context.Context, eventID string, planned []string)
	ModuleFailed(ctx context.Context, eventID, module, detail string)
	RunFinished(ctx context.Context, eventID string, report RunReport)
}

// NopNotifier discards all milestones.
type NopNotifier struct{}

func (NopNotifier) RunStarted(context.Context, string, []string) {}

func (NopNotifier) ModuleFailed(context.Context, string, string, string) {}

func (NopNotifier) RunFinished(context.Context, string, RunReport) {}
