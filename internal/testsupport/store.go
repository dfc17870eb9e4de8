package testsupport

import (
	"context"
	"testing"
	"time"

	"vestry/internal/config"
	"vestry/internal/event"
	"vestry/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewEvent creates and persists an event for tests using the provided store.
func NewEvent(t testing.TB, st *store.Store, title string, toggles map[string]bool) *event.Event {
	t.Helper()

	now := time.Now().UTC()
	ev := &event.Event{
		ID: event.NewID(now, title),
		Metadata: event.Metadata{
			Title:    title,
			Speaker:  "Test Speaker",
			Language: "auto",
		},
		Toggles:   toggles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.CreateEvent(context.Background(), ev); err != nil {
		t.Fatalf("store.CreateEvent: %v", err)
	}
	return ev
}
