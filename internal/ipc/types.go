package ipc

import (
	"time"

	"vestry/internal/event"
)

// EventSummary is the list-view DTO for one event.
type EventSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Speaker   string    `json:"speaker"`
	Series    string    `json:"series,omitempty"`
	Status    string    `json:"status"`
	Inputs    int       `json:"inputs"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
}

// ModuleResult is the per-module DTO exposed to clients.
type ModuleResult struct {
	Module      string    `json:"module"`
	Status      string    `json:"status"`
	SkipReason  string    `json:"skip_reason,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	OutputFiles []string  `json:"output_files,omitempty"`
	Attempts    int       `json:"attempts"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// EventDetail is the full DTO for one event.
type EventDetail struct {
	EventSummary
	Scripture string          `json:"scripture,omitempty"`
	Language  string          `json:"language"`
	Notes     string          `json:"notes,omitempty"`
	Modules   map[string]bool `json:"modules"`
	InputRefs []string        `json:"input_refs,omitempty"`
	Results   []ModuleResult  `json:"results,omitempty"`
}

// RunReport is the DTO for one finished run.
type RunReport struct {
	EventID    string    `json:"event_id"`
	RunID      string    `json:"run_id"`
	Outcome    string    `json:"outcome"`
	Status     string    `json:"status"`
	Planned    []string  `json:"planned,omitempty"`
	Executed   []string  `json:"executed,omitempty"`
	Failed     []string  `json:"failed,omitempty"`
	Skipped    []string  `json:"skipped,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ActiveRun describes one held execution lock.
type ActiveRun struct {
	EventID     string    `json:"event_id"`
	RunID       string    `json:"run_id"`
	AcquiredAt  time.Time `json:"acquired_at"`
	HeartbeatAt time.Time `json:"heartbeat_at"`
}

// AdapterStatus describes the adapter wiring for one module.
type AdapterStatus struct {
	Module    string `json:"module"`
	Command   string `json:"command,omitempty"`
	Builtin   bool   `json:"builtin"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running     bool           `json:"running"`
	PID         int            `json:"pid"`
	StoreDBPath string         `json:"store_db_path"`
	LockPath    string         `json:"lock_path"`
	EventCounts map[string]int  `json:"event_counts"`
	ActiveRuns  []ActiveRun     `json:"active_runs,omitempty"`
	Adapters    []AdapterStatus `json:"adapters,omitempty"`
}

// EventCreateRequest registers a new event.
type EventCreateRequest struct {
	Title     string          `json:"title"`
	StartsAt  time.Time       `json:"starts_at,omitempty"`
	Speaker   string          `json:"speaker,omitempty"`
	Series    string          `json:"series,omitempty"`
	Scripture string          `json:"scripture,omitempty"`
	Language  string          `json:"language,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	Modules   map[string]bool `json:"modules,omitempty"`
}

// EventCreateResponse returns the created event.
type EventCreateResponse struct {
	Event EventDetail `json:"event"`
}

// EventListRequest filters event listing by projected status.
type EventListRequest struct {
	Statuses []string `json:"statuses,omitempty"`
}

// EventListResponse contains event summaries, newest first.
type EventListResponse struct {
	Events []EventSummary `json:"events"`
}

// EventDescribeRequest fetches a single event by id.
type EventDescribeRequest struct {
	ID string `json:"id"`
}

// EventDescribeResponse contains the full event view.
type EventDescribeResponse struct {
	Event EventDetail `json:"event"`
}

// EventUpdateRequest patches editable event fields. Nil fields are left
// unchanged.
type EventUpdateRequest struct {
	ID        string          `json:"id"`
	Speaker   *string         `json:"speaker,omitempty"`
	Series    *string         `json:"series,omitempty"`
	Scripture *string         `json:"scripture,omitempty"`
	Language  *string         `json:"language,omitempty"`
	Notes     *string         `json:"notes,omitempty"`
	Modules   map[string]bool `json:"modules,omitempty"`
	Archived  *bool           `json:"archived,omitempty"`
}

// EventUpdateResponse returns the updated event.
type EventUpdateResponse struct {
	Event EventDetail `json:"event"`
}

// EventAttachRequest attaches an input file to an event.
type EventAttachRequest struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// EventAttachResponse returns the updated event.
type EventAttachResponse struct {
	Event EventDetail `json:"event"`
}

// EventRemoveRequest removes an event.
type EventRemoveRequest struct {
	ID          string `json:"id"`
	DeleteFiles bool   `json:"delete_files"`
}

// EventRemoveResponse confirms removal.
type EventRemoveResponse struct {
	Removed bool `json:"removed"`
}

// RunRequest executes the workflow for an event.
type RunRequest struct {
	ID       string   `json:"id"`
	Force    []string `json:"force,omitempty"`
	ForceAll bool     `json:"force_all,omitempty"`
}

// RunResponse carries the run report.
type RunResponse struct {
	Report RunReport `json:"report"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

func summarize(evt *event.Event, status event.OverallStatus) EventSummary {
	return EventSummary{
		ID:        evt.ID,
		Title:     evt.Metadata.Title,
		Speaker:   evt.Metadata.Speaker,
		Series:    evt.Metadata.Series,
		Status:    string(status),
		Inputs:    len(evt.Inputs),
		Archived:  evt.Archived,
		CreatedAt: evt.CreatedAt,
	}
}

func detail(evt *event.Event, status event.OverallStatus, order []string) EventDetail {
	d := EventDetail{
		EventSummary: summarize(evt, status),
		Scripture:    evt.Metadata.Scripture,
		Language:     evt.Metadata.Language,
		Notes:        evt.Metadata.Notes,
		Modules:      evt.Toggles,
		InputRefs:    evt.Inputs,
	}
	for _, name := range order {
		res, ok := evt.Result(name)
		if !ok {
			continue
		}
		d.Results = append(d.Results, ModuleResult{
			Module:      res.Module,
			Status:      string(res.Status),
			SkipReason:  string(res.SkipReason),
			ErrorKind:   res.ErrorKind,
			ErrorDetail: res.ErrorDetail,
			OutputFiles: res.OutputFiles,
			Attempts:    res.Attempts,
			StartedAt:   res.StartedAt,
			FinishedAt:  res.FinishedAt,
		})
	}
	return d
}
