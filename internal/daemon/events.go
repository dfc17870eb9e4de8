package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vestry/internal/event"
	"vestry/internal/fileutil"
	"vestry/internal/logging"
	"vestry/internal/projector"
	"vestry/internal/services"
	"vestry/internal/store"
)

var inputFileExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".mov":  {},
	".mp3":  {},
	".wav":  {},
	".flac": {},
}

// CreateEventRequest carries the fields needed to register a new event.
type CreateEventRequest struct {
	Title     string
	StartsAt  time.Time
	Speaker   string
	Series    string
	Scripture string
	Language  string
	Notes     string
	// Toggles overrides the default module selection. Every declared
	// module starts enabled; entries here flip individual modules.
	Toggles map[string]bool
}

// CreateEvent registers a new event in the store and materializes its
// directory tree with a descriptor snapshot.
func (d *Daemon) CreateEvent(ctx context.Context, req CreateEventRequest) (*event.Event, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "", "create event", "title is required", nil)
	}
	startsAt := req.StartsAt
	if startsAt.IsZero() {
		startsAt = time.Now()
	}

	if unknown := d.registry.Unknown(togglesKeys(req.Toggles)); len(unknown) > 0 {
		return nil, services.Wrap(services.ErrValidation, unknown[0], "create event", fmt.Sprintf("unknown modules: %v", unknown), nil)
	}
	toggles := make(map[string]bool, d.registry.Len())
	for _, name := range d.registry.Names() {
		toggles[name] = true
	}
	for name, enabled := range req.Toggles {
		toggles[name] = enabled
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = "auto"
	}
	now := time.Now().UTC()
	evt := &event.Event{
		ID: event.NewID(startsAt, title),
		Metadata: event.Metadata{
			Title:     title,
			Speaker:   strings.TrimSpace(req.Speaker),
			Series:    strings.TrimSpace(req.Series),
			Scripture: strings.TrimSpace(req.Scripture),
			Language:  language,
			Notes:     strings.TrimSpace(req.Notes),
		},
		Toggles:   toggles,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := d.store.CreateEvent(ctx, evt); err != nil {
		if errors.Is(err, store.ErrEventExists) {
			return nil, services.Wrap(services.ErrValidation, "", "create event", fmt.Sprintf("event %q already exists", evt.ID), err)
		}
		return nil, err
	}
	if err := d.materialize(evt); err != nil {
		return nil, err
	}
	d.logger.Info("event created",
		logging.String(logging.FieldEventID, evt.ID),
		logging.String("title", title))
	return evt, nil
}

// GetEvent loads one event together with its projected status.
func (d *Daemon) GetEvent(ctx context.Context, eventID string) (*event.Event, event.OverallStatus, error) {
	evt, err := d.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrEventNotFound) {
			return nil, "", services.Wrap(services.ErrNotFound, "", "get event", fmt.Sprintf("event %q", eventID), err)
		}
		return nil, "", err
	}
	status, err := d.projectStatus(ctx, evt)
	if err != nil {
		return nil, "", err
	}
	return evt, status, nil
}

// ListEvents returns all events newest first with projected statuses.
func (d *Daemon) ListEvents(ctx context.Context) ([]*event.Event, []event.OverallStatus, error) {
	events, err := d.store.ListEvents(ctx)
	if err != nil {
		return nil, nil, err
	}
	locks, err := d.store.ActiveRuns(ctx)
	if err != nil {
		return nil, nil, err
	}
	held := make(map[string]bool, len(locks))
	for _, lock := range locks {
		held[lock.EventID] = true
	}
	statuses := make([]event.OverallStatus, len(events))
	for i, evt := range events {
		statuses[i] = projector.Project(evt, held[evt.ID])
	}
	return events, statuses, nil
}

// UpdateEventRequest patches editable event fields. Nil fields are left
// unchanged.
type UpdateEventRequest struct {
	Speaker   *string
	Series    *string
	Scripture *string
	Language  *string
	Notes     *string
	Toggles   map[string]bool
	Archived  *bool
}

// UpdateEvent applies a metadata or toggle patch and refreshes the
// descriptor snapshot.
func (d *Daemon) UpdateEvent(ctx context.Context, eventID string, req UpdateEventRequest) (*event.Event, error) {
	evt, _, err := d.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, held, err := d.store.ActiveRun(ctx, eventID); err != nil {
		return nil, err
	} else if held {
		return nil, services.Wrap(services.ErrConcurrency, "", "update event", "event has an active run", nil)
	}

	if req.Speaker != nil {
		evt.Metadata.Speaker = strings.TrimSpace(*req.Speaker)
	}
	if req.Series != nil {
		evt.Metadata.Series = strings.TrimSpace(*req.Series)
	}
	if req.Scripture != nil {
		evt.Metadata.Scripture = strings.TrimSpace(*req.Scripture)
	}
	if req.Language != nil {
		evt.Metadata.Language = strings.TrimSpace(*req.Language)
	}
	if req.Notes != nil {
		evt.Metadata.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.Toggles != nil {
		if unknown := d.registry.Unknown(togglesKeys(req.Toggles)); len(unknown) > 0 {
			return nil, services.Wrap(services.ErrValidation, unknown[0], "update event", fmt.Sprintf("unknown modules: %v", unknown), nil)
		}
		if evt.Toggles == nil {
			evt.Toggles = make(map[string]bool, len(req.Toggles))
		}
		for name, enabled := range req.Toggles {
			evt.Toggles[name] = enabled
		}
	}
	if req.Archived != nil {
		evt.Archived = *req.Archived
	}

	if err := d.store.UpdateEvent(ctx, evt); err != nil {
		return nil, err
	}
	if err := d.materialize(evt); err != nil {
		return nil, err
	}
	return evt, nil
}

// AttachInput copies a recording into the event's input area and records
// the reference. The source file is left in place.
func (d *Daemon) AttachInput(ctx context.Context, eventID, sourcePath string) (*event.Event, error) {
	trimmed := strings.TrimSpace(sourcePath)
	if trimmed == "" {
		return nil, services.Wrap(services.ErrValidation, "", "attach input", "source path is required", nil)
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "attach input", fmt.Sprintf("stat source file: %v", err), err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "", "attach input", fmt.Sprintf("source path %q is a directory", absPath), nil)
	}
	ext := strings.ToLower(filepath.Ext(info.Name()))
	if _, ok := inputFileExtensions[ext]; !ok {
		return nil, services.Wrap(services.ErrValidation, "", "attach input", fmt.Sprintf("unsupported file extension %q", ext), nil)
	}

	evt, _, err := d.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := d.layout.Ensure(eventID); err != nil {
		return nil, err
	}
	target := filepath.Join(d.layout.InputDir(eventID), info.Name())
	if err := fileutil.CopyFileVerified(absPath, target); err != nil {
		return nil, fmt.Errorf("copy input file: %w", err)
	}

	for _, existing := range evt.Inputs {
		if existing == target {
			return evt, nil
		}
	}
	evt.Inputs = append(evt.Inputs, target)
	if err := d.store.UpdateEvent(ctx, evt); err != nil {
		return nil, err
	}
	if err := d.materialize(evt); err != nil {
		return nil, err
	}
	d.logger.Info("input attached",
		logging.String(logging.FieldEventID, eventID),
		logging.String("source", absPath))
	return evt, nil
}

// RemoveEvent deletes an event from the store and optionally its
// directory tree.
func (d *Daemon) RemoveEvent(ctx context.Context, eventID string, deleteFiles bool) error {
	if _, held, err := d.store.ActiveRun(ctx, eventID); err != nil {
		return err
	} else if held {
		return services.Wrap(services.ErrConcurrency, "", "remove event", "event has an active run", nil)
	}
	removed, err := d.store.RemoveEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !removed {
		return services.Wrap(services.ErrNotFound, "", "remove event", fmt.Sprintf("event %q", eventID), nil)
	}
	if deleteFiles {
		if err := os.RemoveAll(d.layout.Dir(eventID)); err != nil {
			return fmt.Errorf("remove event directory: %w", err)
		}
	}
	d.logger.Info("event removed", logging.String(logging.FieldEventID, eventID))
	return nil
}

// materialize ensures the event directory exists and reflects the
// current store state.
func (d *Daemon) materialize(evt *event.Event) error {
	if err := d.layout.Ensure(evt.ID); err != nil {
		return err
	}
	return event.WriteDescriptor(d.layout, evt)
}

func (d *Daemon) projectStatus(ctx context.Context, evt *event.Event) (event.OverallStatus, error) {
	_, held, err := d.store.ActiveRun(ctx, evt.ID)
	if err != nil {
		return "", err
	}
	return projector.Project(evt, held), nil
}

func togglesKeys(toggles map[string]bool) []string {
	keys := make([]string, 0, len(toggles))
	for name := range toggles {
		keys = append(keys, name)
	}
	return keys
}
