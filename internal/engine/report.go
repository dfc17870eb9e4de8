package engine

import (
	"time"

	"vestry/internal/event"
	"vestry/internal/runlog"
)

// Outcome is the terminal state of one run.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomePartial   Outcome = "partial"
)

func (o Outcome) phase() runlog.RunPhase {
	switch o {
	case OutcomeCompleted:
		return runlog.PhaseCompleted
	case OutcomeFailed:
		return runlog.PhaseFailed
	default:
		return runlog.PhasePartial
	}
}

// RunReport summarizes one run for the caller.
type RunReport struct {
	EventID    string              `json:"event_id"`
	RunID      string              `json:"run_id"`
	Outcome    Outcome             `json:"outcome"`
	Status     event.OverallStatus `json:"status"`
	Planned    []string            `json:"planned,omitempty"`
	Executed   []string            `json:"executed,omitempty"`
	Failed     []string            `json:"failed,omitempty"`
	Skipped    []string            `json:"skipped,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}
