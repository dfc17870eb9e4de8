package event

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Descriptor is the YAML representation of an event written to event.yaml in
// the event directory. It mirrors the store's metadata, toggles, and inputs
// for human inspection and external tooling; module results live in the
// store and in the logs area, not here.
type Descriptor struct {
	ID        string          `yaml:"id"`
	Title     string          `yaml:"title"`
	Speaker   string          `yaml:"speaker"`
	Series    string          `yaml:"series,omitempty"`
	Scripture string          `yaml:"scripture,omitempty"`
	Language  string          `yaml:"language"`
	Notes     string          `yaml:"notes,omitempty"`
	Modules   map[string]bool `yaml:"modules"`
	Inputs    []string        `yaml:"inputs,omitempty"`
	Archived  bool            `yaml:"archived,omitempty"`
	CreatedAt time.Time       `yaml:"created_at"`
	UpdatedAt time.Time       `yaml:"updated_at"`
}

// NewDescriptor builds a descriptor snapshot from an event.
func NewDescriptor(ev *Event) Descriptor {
	modules := make(map[string]bool, len(ev.Toggles))
	for name, enabled := range ev.Toggles {
		modules[name] = enabled
	}
	inputs := make([]string, len(ev.Inputs))
	copy(inputs, ev.Inputs)
	return Descriptor{
		ID:        ev.ID,
		Title:     ev.Metadata.Title,
		Speaker:   ev.Metadata.Speaker,
		Series:    ev.Metadata.Series,
		Scripture: ev.Metadata.Scripture,
		Language:  ev.Metadata.Language,
		Notes:     ev.Metadata.Notes,
		Modules:   modules,
		Inputs:    inputs,
		Archived:  ev.Archived,
		CreatedAt: ev.CreatedAt,
		UpdatedAt: ev.UpdatedAt,
	}
}

// WriteDescriptor persists the descriptor snapshot for an event into its
// directory, replacing any previous snapshot.
func WriteDescriptor(layout Layout, ev *Event) error {
	data, err := yaml.Marshal(NewDescriptor(ev))
	if err != nil {
		return fmt.Errorf("marshal event descriptor: %w", err)
	}
	path := layout.DescriptorPath(ev.ID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write event descriptor: %w", err)
	}
	return nil
}

// ReadDescriptor loads the descriptor file for an event directory.
func ReadDescriptor(layout Layout, eventID string) (Descriptor, error) {
	data, err := os.ReadFile(layout.DescriptorPath(eventID))
	if err != nil {
		return Descriptor{}, fmt.Errorf("read event descriptor: %w", err)
	}
	var desc Descriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return Descriptor{}, fmt.Errorf("parse event descriptor: %w", err)
	}
	return desc, nil
}
