package event

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	descriptorFileName = "event.yaml"
	inputDirName       = "input"
	outputDirName      = "output"
	logsDirName        = "logs"
)

// Layout resolves the on-disk directory structure for events. One directory
// per event: a descriptor file, an input area, an output area, and a logs
// area with per-module result records.
type Layout struct {
	root string
}

// NewLayout creates a layout rooted at the configured events directory.
func NewLayout(eventsDir string) Layout {
	return Layout{root: eventsDir}
}

// Root returns the events directory.
func (l Layout) Root() string { return l.root }

// Dir returns the directory for one event.
func (l Layout) Dir(eventID string) string {
	return filepath.Join(l.root, eventID)
}

// DescriptorPath returns the path of the event descriptor file.
func (l Layout) DescriptorPath(eventID string) string {
	return filepath.Join(l.Dir(eventID), descriptorFileName)
}

// InputDir returns the event's input area.
func (l Layout) InputDir(eventID string) string {
	return filepath.Join(l.Dir(eventID), inputDirName)
}

// OutputDir returns the event's output area.
func (l Layout) OutputDir(eventID string) string {
	return filepath.Join(l.Dir(eventID), outputDirName)
}

// LogsDir returns the event's logs area.
func (l Layout) LogsDir(eventID string) string {
	return filepath.Join(l.Dir(eventID), logsDirName)
}

// Ensure creates the event directory tree.
func (l Layout) Ensure(eventID string) error {
	for _, dir := range []string{
		l.Dir(eventID),
		l.InputDir(eventID),
		l.OutputDir(eventID),
		l.LogsDir(eventID),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create event directory %q: %w", dir, err)
		}
	}
	return nil
}
