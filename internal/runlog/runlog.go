package runlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vestry/internal/event"
)

// RunStateFile is the run-level execution marker kept alongside the
// per-module records. It is the on-disk evidence used to reconcile
// locks after an unclean shutdown.
const RunStateFile = "run_state.json"

// RunPhase is the coarse lifecycle of a run as recorded on disk.
type RunPhase string

const (
	PhaseRunning   RunPhase = "running"
	PhaseCompleted RunPhase = "completed"
	PhaseFailed    RunPhase = "failed"
	PhasePartial   RunPhase = "partial"
)

// RunState is the persisted run marker. Completed grows as the run
// progresses so an interrupted run shows how far it got.
type RunState struct {
	RunID      string    `json:"run_id"`
	EventID    string    `json:"event_id"`
	Phase      RunPhase  `json:"phase"`
	Planned    []string  `json:"planned,omitempty"`
	Completed  []string  `json:"completed,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// ModuleRecord is one module execution record written under logs/. The
// same data lives in the store; the file copy keeps each event directory
// self-describing and greppable without tooling.
type ModuleRecord struct {
	EventID    string             `json:"event_id"`
	RunID      string             `json:"run_id"`
	Result     event.ModuleResult `json:"result"`
	RecordedAt time.Time          `json:"recorded_at"`
}

// WriteModuleResult writes logs/<module>_result.json for one execution.
func WriteModuleResult(layout event.Layout, eventID, runID string, res event.ModuleResult) error {
	rec := ModuleRecord{
		EventID:    eventID,
		RunID:      runID,
		Result:     res,
		RecordedAt: time.Now().UTC(),
	}
	return writeJSON(moduleResultPath(layout, eventID, res.Module), rec)
}

// ReadModuleResult loads the record for one module, if present.
func ReadModuleResult(layout event.Layout, eventID, module string) (ModuleRecord, error) {
	var rec ModuleRecord
	data, err := os.ReadFile(moduleResultPath(layout, eventID, module))
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parse module record: %w", err)
	}
	return rec, nil
}

// WriteRunState persists the run marker for an event.
func WriteRunState(layout event.Layout, state RunState) error {
	return writeJSON(runStatePath(layout, state.EventID), state)
}

// ReadRunState loads the run marker for an event. The boolean reports
// whether a marker exists.
func ReadRunState(layout event.Layout, eventID string) (RunState, bool, error) {
	var state RunState
	data, err := os.ReadFile(runStatePath(layout, eventID))
	if errors.Is(err, os.ErrNotExist) {
		return state, false, nil
	}
	if err != nil {
		return state, false, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, false, fmt.Errorf("parse run state: %w", err)
	}
	return state, true, nil
}

func moduleResultPath(layout event.Layout, eventID, module string) string {
	return filepath.Join(layout.LogsDir(eventID), module+"_result.json")
}

func runStatePath(layout event.Layout, eventID string) string {
	return filepath.Join(layout.LogsDir(eventID), RunStateFile)
}

// writeJSON writes atomically via a temp file so a crash mid-write
// never leaves a truncated record behind.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create logs directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
