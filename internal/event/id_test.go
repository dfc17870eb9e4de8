package event

import (
	"testing"
	"time"
)

func TestNewID(t *testing.T) {
	ts := time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC)
	got := NewID(ts, "Sunday Service")
	want := "2026-01-26_0900_sunday-service"
	if got != want {
		t.Fatalf("NewID = %q, want %q", got, want)
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Sunday Service", "sunday-service"},
		{"Fête de Noël", "fete-de-noel"},
		{"  Easter -- 2026!  ", "easter-2026"},
		{"///", "event"},
		{"", "event"},
		{"Grace & Truth: Part 2", "grace-truth-part-2"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugifyLimitsLength(t *testing.T) {
	long := "a very long sermon title that keeps going and going and going beyond reason"
	slug := Slugify(long)
	if len(slug) > maxSlugLength {
		t.Fatalf("slug too long: %d chars", len(slug))
	}
}
