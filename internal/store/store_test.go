package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"vestry/internal/event"
	"vestry/internal/store"
	"vestry/internal/testsupport"
)

func TestCreateAndGetEvent(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ev := testsupport.NewEvent(t, st, "Sunday Service", map[string]bool{
		"subtitles": true,
		"archive":   false,
	})

	loaded, err := st.GetEvent(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if loaded.Metadata.Title != "Sunday Service" {
		t.Fatalf("unexpected title %q", loaded.Metadata.Title)
	}
	if !loaded.Toggles["subtitles"] || loaded.Toggles["archive"] {
		t.Fatalf("unexpected toggles: %+v", loaded.Toggles)
	}
	if len(loaded.Results) != 0 {
		t.Fatalf("expected no results, got %d", len(loaded.Results))
	}
}

func TestCreateEventRejectsDuplicateID(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ev := testsupport.NewEvent(t, st, "Sunday Service", nil)

	dup := *ev
	err := st.CreateEvent(context.Background(), &dup)
	if !errors.Is(err, store.ErrEventExists) {
		t.Fatalf("expected ErrEventExists, got %v", err)
	}
}

func TestGetEventNotFound(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := st.GetEvent(context.Background(), "missing")
	if !errors.Is(err, store.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestUpdateEventPersistsTogglesAndInputs(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ev := testsupport.NewEvent(t, st, "Sunday Service", map[string]bool{"subtitles": true})

	ev.Toggles["publish_youtube"] = true
	ev.Inputs = []string{"/media/service.mkv"}
	ev.Metadata.Scripture = "John 3:16"
	if err := st.UpdateEvent(context.Background(), ev); err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}

	loaded, err := st.GetEvent(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if !loaded.Toggles["publish_youtube"] {
		t.Fatalf("toggle not persisted: %+v", loaded.Toggles)
	}
	if len(loaded.Inputs) != 1 || loaded.Inputs[0] != "/media/service.mkv" {
		t.Fatalf("inputs not persisted: %+v", loaded.Inputs)
	}
	if loaded.Metadata.Scripture != "John 3:16" {
		t.Fatalf("metadata not persisted: %+v", loaded.Metadata)
	}
}

func TestModuleResultRoundTrip(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ev := testsupport.NewEvent(t, st, "Sunday Service", map[string]bool{"subtitles": true})

	started := time.Now().UTC().Add(-time.Minute)
	res := event.ModuleResult{
		Module:      "subtitles",
		Status:      event.ResultSucceeded,
		OutputFiles: []string{"output/service.srt", "output/service.vtt"},
		StartedAt:   started,
		FinishedAt:  started.Add(30 * time.Second),
		Attempts:    1,
	}
	if err := st.SaveModuleResult(context.Background(), ev.ID, res); err != nil {
		t.Fatalf("SaveModuleResult: %v", err)
	}

	results, err := st.ModuleResults(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("ModuleResults: %v", err)
	}
	got, ok := results["subtitles"]
	if !ok {
		t.Fatal("missing subtitles result")
	}
	if got.Status != event.ResultSucceeded || len(got.OutputFiles) != 2 || got.Attempts != 1 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestSaveModuleResultOverwrites(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ev := testsupport.NewEvent(t, st, "Sunday Service", map[string]bool{"subtitles": true})
	ctx := context.Background()

	now := time.Now().UTC()
	first := event.ModuleResult{
		Module:      "subtitles",
		Status:      event.ResultFailed,
		ErrorKind:   "external tool error",
		ErrorDetail: "whisper exited 1",
		StartedAt:   now,
		FinishedAt:  now,
		Attempts:    1,
	}
	if err := st.SaveModuleResult(ctx, ev.ID, first); err != nil {
		t.Fatalf("SaveModuleResult: %v", err)
	}

	second := first
	second.Status = event.ResultSucceeded
	second.ErrorKind = ""
	second.ErrorDetail = ""
	second.Attempts = 2
	if err := st.SaveModuleResult(ctx, ev.ID, second); err != nil {
		t.Fatalf("SaveModuleResult overwrite: %v", err)
	}

	results, err := st.ModuleResults(ctx, ev.ID)
	if err != nil {
		t.Fatalf("ModuleResults: %v", err)
	}
	got := results["subtitles"]
	if got.Status != event.ResultSucceeded || got.Attempts != 2 || got.ErrorDetail != "" {
		t.Fatalf("overwrite not applied: %+v", got)
	}
}

func TestRunLockExclusivity(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ev := testsupport.NewEvent(t, st, "Sunday Service", nil)
	ctx := context.Background()

	if err := st.AcquireRunLock(ctx, ev.ID, "run-1"); err != nil {
		t.Fatalf("AcquireRunLock: %v", err)
	}
	err := st.AcquireRunLock(ctx, ev.ID, "run-2")
	if !errors.Is(err, store.ErrRunActive) {
		t.Fatalf("expected ErrRunActive, got %v", err)
	}

	lock, held, err := st.ActiveRun(ctx, ev.ID)
	if err != nil || !held {
		t.Fatalf("ActiveRun: %v held=%v", err, held)
	}
	if lock.RunID != "run-1" {
		t.Fatalf("unexpected holder %q", lock.RunID)
	}

	if err := st.ReleaseRunLock(ctx, ev.ID, "run-1"); err != nil {
		t.Fatalf("ReleaseRunLock: %v", err)
	}
	if err := st.AcquireRunLock(ctx, ev.ID, "run-2"); err != nil {
		t.Fatalf("AcquireRunLock after release: %v", err)
	}
}

func TestReleaseRunLockWrongHolder(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ev := testsupport.NewEvent(t, st, "Sunday Service", nil)
	ctx := context.Background()

	if err := st.AcquireRunLock(ctx, ev.ID, "run-1"); err != nil {
		t.Fatalf("AcquireRunLock: %v", err)
	}
	err := st.ReleaseRunLock(ctx, ev.ID, "run-2")
	if !errors.Is(err, store.ErrLockNotHeld) {
		t.Fatalf("expected ErrLockNotHeld, got %v", err)
	}
}

func TestReclaimStaleLocks(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ev := testsupport.NewEvent(t, st, "Sunday Service", nil)
	ctx := context.Background()

	if err := st.AcquireRunLock(ctx, ev.ID, "run-1"); err != nil {
		t.Fatalf("AcquireRunLock: %v", err)
	}

	// Future cutoff treats the fresh heartbeat as stale.
	stale, err := st.ReclaimStaleLocks(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStaleLocks: %v", err)
	}
	if len(stale) != 1 || stale[0].EventID != ev.ID {
		t.Fatalf("unexpected stale locks: %+v", stale)
	}

	_, held, err := st.ActiveRun(ctx, ev.ID)
	if err != nil {
		t.Fatalf("ActiveRun: %v", err)
	}
	if held {
		t.Fatal("expected lock to be reclaimed")
	}
}

func TestReclaimKeepsFreshLocks(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ev := testsupport.NewEvent(t, st, "Sunday Service", nil)
	ctx := context.Background()

	if err := st.AcquireRunLock(ctx, ev.ID, "run-1"); err != nil {
		t.Fatalf("AcquireRunLock: %v", err)
	}
	stale, err := st.ReclaimStaleLocks(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStaleLocks: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("expected no stale locks, got %+v", stale)
	}
	_, held, err := st.ActiveRun(ctx, ev.ID)
	if err != nil || !held {
		t.Fatalf("lock should still be held: %v held=%v", err, held)
	}
}

func TestRemoveEventCascades(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ev := testsupport.NewEvent(t, st, "Sunday Service", map[string]bool{"subtitles": true})
	ctx := context.Background()

	now := time.Now().UTC()
	if err := st.SaveModuleResult(ctx, ev.ID, event.ModuleResult{
		Module: "subtitles", Status: event.ResultSucceeded, StartedAt: now, FinishedAt: now, Attempts: 1,
	}); err != nil {
		t.Fatalf("SaveModuleResult: %v", err)
	}

	removed, err := st.RemoveEvent(ctx, ev.ID)
	if err != nil || !removed {
		t.Fatalf("RemoveEvent: %v removed=%v", err, removed)
	}
	results, err := st.ModuleResults(ctx, ev.ID)
	if err != nil {
		t.Fatalf("ModuleResults: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected cascade delete, got %+v", results)
	}
}

func TestListEventsNewestFirst(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	older := &event.Event{
		ID:        "2026-01-19_0900_first",
		Metadata:  event.Metadata{Title: "First"},
		CreatedAt: time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC),
	}
	newer := &event.Event{
		ID:        "2026-01-26_0900_second",
		Metadata:  event.Metadata{Title: "Second"},
		CreatedAt: time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC),
	}
	for _, ev := range []*event.Event{older, newer} {
		if err := st.CreateEvent(ctx, ev); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	events, err := st.ListEvents(ctx)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 || events[0].ID != newer.ID {
		t.Fatalf("unexpected order: %v", []string{events[0].ID, events[1].ID})
	}
}
