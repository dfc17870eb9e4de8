package registry_test

import (
	"errors"
	"testing"

	"vestry/internal/config"
	"vestry/internal/registry"
	"vestry/internal/services"
)

func TestDefaultDeclarationOrder(t *testing.T) {
	cfg := config.Default()
	reg, err := registry.Default(&cfg)
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	want := []string{
		registry.ModuleThumbnailAI,
		registry.ModuleThumbnailCompose,
		registry.ModuleSubtitles,
		registry.ModulePublishYouTube,
		registry.ModulePublishWebsite,
		registry.ModuleArchive,
	}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %d modules, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("module %d = %q, want %q", i, got[i], want[i])
		}
	}
	for i, name := range want {
		if idx := reg.Index(name); idx != i {
			t.Fatalf("Index(%q) = %d, want %d", name, idx, i)
		}
	}
}

func TestDefaultPrerequisiteStrengths(t *testing.T) {
	cfg := config.Default()
	reg, err := registry.Default(&cfg)
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	compose, ok := reg.Describe(registry.ModuleThumbnailCompose)
	if !ok {
		t.Fatal("thumbnail_compose not declared")
	}
	if len(compose.Prerequisites) != 1 || compose.Prerequisites[0].Strength != registry.Hard {
		t.Fatalf("unexpected compose prerequisites: %+v", compose.Prerequisites)
	}
	youtube, _ := reg.Describe(registry.ModulePublishYouTube)
	for _, p := range youtube.Prerequisites {
		if p.Strength != registry.Soft {
			t.Fatalf("publish_youtube prerequisite %q should be soft", p.Name)
		}
	}
	if !youtube.NeedsInput {
		t.Fatal("publish_youtube should require input files")
	}
	if youtube.Idempotency != registry.SkipIfSucceeded {
		t.Fatalf("unexpected idempotency %q", youtube.Idempotency)
	}
}

func TestNewRejectsUnknownPrerequisite(t *testing.T) {
	_, err := registry.New(
		registry.Descriptor{Name: "a"},
		registry.Descriptor{Name: "b", Prerequisites: []registry.Prerequisite{{Name: "missing", Strength: registry.Hard}}},
	)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewRejectsDuplicateName(t *testing.T) {
	_, err := registry.New(
		registry.Descriptor{Name: "a"},
		registry.Descriptor{Name: "a"},
	)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewRejectsSelfReference(t *testing.T) {
	_, err := registry.New(
		registry.Descriptor{Name: "a", Prerequisites: []registry.Prerequisite{{Name: "a", Strength: registry.Hard}}},
	)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUnknownNames(t *testing.T) {
	cfg := config.Default()
	reg, err := registry.Default(&cfg)
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	missing := reg.Unknown([]string{"subtitles", "zz_custom", "aa_custom"})
	if len(missing) != 2 || missing[0] != "aa_custom" || missing[1] != "zz_custom" {
		t.Fatalf("unexpected missing set: %v", missing)
	}
}
