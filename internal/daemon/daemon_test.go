package daemon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vestry/internal/config"
	"vestry/internal/daemon"
	"vestry/internal/engine"
	"vestry/internal/event"
	"vestry/internal/registry"
	"vestry/internal/services"
	"vestry/internal/testsupport"
)

func newDaemon(t *testing.T) (*daemon.Daemon, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	reg, err := registry.Default(cfg)
	if err != nil {
		t.Fatalf("registry.Default: %v", err)
	}
	eng := engine.New(cfg, st, reg, nil)
	d, err := daemon.New(cfg, st, reg, eng, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, cfg
}

func TestCreateEventMaterializesDirectory(t *testing.T) {
	d, cfg := newDaemon(t)
	evt, err := d.CreateEvent(context.Background(), daemon.CreateEventRequest{
		Title:   "Sunday Service",
		Speaker: "Pastor Kim",
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if evt.ID == "" {
		t.Fatal("event ID empty")
	}
	if !evt.Enabled("subtitles") || !evt.Enabled("archive") {
		t.Fatalf("expected all modules enabled by default, got %v", evt.Toggles)
	}

	layout := event.NewLayout(cfg.Paths.EventsDir)
	for _, dir := range []string{layout.InputDir(evt.ID), layout.OutputDir(evt.ID), layout.LogsDir(evt.ID)} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
	desc, err := event.ReadDescriptor(layout, evt.ID)
	if err != nil {
		t.Fatalf("ReadDescriptor: %v", err)
	}
	if desc.Title != "Sunday Service" || desc.Speaker != "Pastor Kim" {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
}

func TestCreateEventRejectsUnknownToggle(t *testing.T) {
	d, _ := newDaemon(t)
	_, err := d.CreateEvent(context.Background(), daemon.CreateEventRequest{
		Title:   "Sunday Service",
		Toggles: map[string]bool{"livestream": true},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateEventRequiresTitle(t *testing.T) {
	d, _ := newDaemon(t)
	_, err := d.CreateEvent(context.Background(), daemon.CreateEventRequest{Title: "   "})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAttachInputCopiesFile(t *testing.T) {
	d, cfg := newDaemon(t)
	evt, err := d.CreateEvent(context.Background(), daemon.CreateEventRequest{Title: "Sunday Service"})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	source := filepath.Join(t.TempDir(), "recording.mp4")
	if err := os.WriteFile(source, []byte("fake video payload"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	updated, err := d.AttachInput(context.Background(), evt.ID, source)
	if err != nil {
		t.Fatalf("AttachInput: %v", err)
	}
	if len(updated.Inputs) != 1 {
		t.Fatalf("expected one input, got %v", updated.Inputs)
	}
	layout := event.NewLayout(cfg.Paths.EventsDir)
	copied := filepath.Join(layout.InputDir(evt.ID), "recording.mp4")
	if updated.Inputs[0] != copied {
		t.Fatalf("input reference = %q, want %q", updated.Inputs[0], copied)
	}
	data, err := os.ReadFile(copied)
	if err != nil || string(data) != "fake video payload" {
		t.Fatalf("copied file mismatch: %q err=%v", data, err)
	}

	// Attaching the same file again is a no-op.
	again, err := d.AttachInput(context.Background(), evt.ID, source)
	if err != nil {
		t.Fatalf("second AttachInput: %v", err)
	}
	if len(again.Inputs) != 1 {
		t.Fatalf("duplicate input recorded: %v", again.Inputs)
	}
}

func TestAttachInputRejectsUnsupportedExtension(t *testing.T) {
	d, _ := newDaemon(t)
	evt, err := d.CreateEvent(context.Background(), daemon.CreateEventRequest{Title: "Sunday Service"})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	source := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(source, []byte("notes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if _, err := d.AttachInput(context.Background(), evt.ID, source); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateEventPatchesFields(t *testing.T) {
	d, _ := newDaemon(t)
	evt, err := d.CreateEvent(context.Background(), daemon.CreateEventRequest{Title: "Sunday Service"})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	series := "Advent 2026"
	updated, err := d.UpdateEvent(context.Background(), evt.ID, daemon.UpdateEventRequest{
		Series:  &series,
		Toggles: map[string]bool{"publish_youtube": false},
	})
	if err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	if updated.Metadata.Series != series {
		t.Fatalf("series = %q, want %q", updated.Metadata.Series, series)
	}
	if updated.Enabled("publish_youtube") {
		t.Fatal("publish_youtube should be disabled")
	}
	if !updated.Enabled("subtitles") {
		t.Fatal("unrelated toggles should be preserved")
	}
}

func TestStartEnforcesSingleInstance(t *testing.T) {
	d, cfg := newDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	st2 := testsupport.MustOpenStore(t, cfg)
	reg2, err := registry.Default(cfg)
	if err != nil {
		t.Fatalf("registry.Default: %v", err)
	}
	second, err := daemon.New(cfg, st2, reg2, engine.New(cfg, st2, reg2, nil), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second daemon start to fail")
	}
}

func TestRemoveEventDeletesFiles(t *testing.T) {
	d, cfg := newDaemon(t)
	evt, err := d.CreateEvent(context.Background(), daemon.CreateEventRequest{Title: "Sunday Service"})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if err := d.RemoveEvent(context.Background(), evt.ID, true); err != nil {
		t.Fatalf("RemoveEvent: %v", err)
	}
	layout := event.NewLayout(cfg.Paths.EventsDir)
	if _, err := os.Stat(layout.Dir(evt.ID)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("event directory should be gone, stat err=%v", err)
	}
	if _, _, err := d.GetEvent(context.Background(), evt.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestStatusCountsEvents(t *testing.T) {
	d, _ := newDaemon(t)
	if _, err := d.CreateEvent(context.Background(), daemon.CreateEventRequest{Title: "First Service"}); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if _, err := d.CreateEvent(context.Background(), daemon.CreateEventRequest{Title: "Second Service"}); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	status := d.Status(context.Background())
	if status.EventCounts[event.StatusPending] != 2 {
		t.Fatalf("expected 2 pending events, got %+v", status.EventCounts)
	}
}
