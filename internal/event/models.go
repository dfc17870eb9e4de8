package event

import (
	"strings"
	"time"
)

// ResultStatus represents the outcome of one module execution.
type ResultStatus string

const (
	ResultSucceeded ResultStatus = "succeeded"
	ResultFailed    ResultStatus = "failed"
	ResultSkipped   ResultStatus = "skipped"
)

// SkipReason explains why a module was recorded skipped instead of executed.
type SkipReason string

const (
	// SkipMissingDependency marks a module whose hard prerequisite is disabled.
	SkipMissingDependency SkipReason = "missing-dependency"
	// SkipDependencyFailed marks a module whose prerequisite failed during the run.
	SkipDependencyFailed SkipReason = "dependency-failed"
)

// OverallStatus is the derived summary state of an event. It is always
// recomputed from toggles and results, never written directly.
type OverallStatus string

const (
	StatusPending    OverallStatus = "pending"
	StatusProcessing OverallStatus = "processing"
	StatusCompleted  OverallStatus = "completed"
	StatusFailed     OverallStatus = "failed"
	StatusPartial    OverallStatus = "partial"
)

// Metadata holds the user-editable description of one production run.
type Metadata struct {
	Title     string `yaml:"title" json:"title"`
	Speaker   string `yaml:"speaker" json:"speaker"`
	Series    string `yaml:"series,omitempty" json:"series,omitempty"`
	Scripture string `yaml:"scripture,omitempty" json:"scripture,omitempty"`
	Language  string `yaml:"language" json:"language"`
	Notes     string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// ModuleResult records one module execution outcome. Result entries exist
// only for modules that were ever attempted; absence means "not yet run".
type ModuleResult struct {
	Module      string       `json:"module"`
	Status      ResultStatus `json:"status"`
	SkipReason  SkipReason   `json:"skip_reason,omitempty"`
	OutputFiles []string     `json:"output_files,omitempty"`
	ErrorKind   string       `json:"error_kind,omitempty"`
	ErrorDetail string       `json:"error_detail,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	Attempts    int          `json:"attempts"`
}

// Event is one tracked production run.
type Event struct {
	ID        string
	Metadata  Metadata
	Toggles   map[string]bool
	Inputs    []string
	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time
	Results   map[string]ModuleResult
}

// EnabledModules returns the names of all enabled modules, unordered.
func (e *Event) EnabledModules() []string {
	names := make([]string, 0, len(e.Toggles))
	for name, enabled := range e.Toggles {
		if enabled {
			names = append(names, name)
		}
	}
	return names
}

// Enabled reports whether the named module is toggled on.
func (e *Event) Enabled(name string) bool {
	return e.Toggles[name]
}

// Result returns the latest recorded result for a module, if any.
func (e *Event) Result(name string) (ModuleResult, bool) {
	res, ok := e.Results[name]
	return res, ok
}

// HasInputs reports whether the event has at least one input reference.
func (e *Event) HasInputs() bool {
	for _, input := range e.Inputs {
		if strings.TrimSpace(input) != "" {
			return true
		}
	}
	return false
}

// ParseResultStatus converts a string into a known ResultStatus.
func ParseResultStatus(value string) (ResultStatus, bool) {
	normalized := ResultStatus(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case ResultSucceeded, ResultFailed, ResultSkipped:
		return normalized, true
	}
	return "", false
}

// ParseOverallStatus converts a string into a known OverallStatus.
func ParseOverallStatus(value string) (OverallStatus, bool) {
	normalized := OverallStatus(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusPartial:
		return normalized, true
	}
	return "", false
}
