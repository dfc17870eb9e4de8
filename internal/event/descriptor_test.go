package event

import (
	"testing"
	"time"
)

func TestDescriptorRoundTrip(t *testing.T) {
	layout := NewLayout(t.TempDir())
	created := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	ev := &Event{
		ID: NewID(created, "Lent Midweek"),
		Metadata: Metadata{
			Title:     "Lent Midweek",
			Speaker:   "Pastor Kim",
			Scripture: "Psalm 51",
			Language:  "en",
		},
		Toggles:   map[string]bool{"subtitles": true, "archive": false},
		Inputs:    []string{"/media/lent.mkv"},
		CreatedAt: created,
		UpdatedAt: created,
	}

	if err := layout.Ensure(ev.ID); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := WriteDescriptor(layout, ev); err != nil {
		t.Fatalf("WriteDescriptor: %v", err)
	}

	desc, err := ReadDescriptor(layout, ev.ID)
	if err != nil {
		t.Fatalf("ReadDescriptor: %v", err)
	}
	if desc.ID != ev.ID || desc.Title != "Lent Midweek" || desc.Speaker != "Pastor Kim" {
		t.Fatalf("descriptor mismatch: %+v", desc)
	}
	if !desc.Modules["subtitles"] || desc.Modules["archive"] {
		t.Fatalf("unexpected modules: %+v", desc.Modules)
	}
	if len(desc.Inputs) != 1 || desc.Inputs[0] != "/media/lent.mkv" {
		t.Fatalf("unexpected inputs: %+v", desc.Inputs)
	}
}

func TestLayoutPaths(t *testing.T) {
	layout := NewLayout("/data/events")
	id := "2026-01-26_0900_sunday-service"
	if got := layout.Dir(id); got != "/data/events/"+id {
		t.Fatalf("Dir = %q", got)
	}
	if got := layout.DescriptorPath(id); got != "/data/events/"+id+"/event.yaml" {
		t.Fatalf("DescriptorPath = %q", got)
	}
	if got := layout.LogsDir(id); got != "/data/events/"+id+"/logs" {
		t.Fatalf("LogsDir = %q", got)
	}
}
