package registry

import (
	"time"

	"vestry/internal/adapter"
	"vestry/internal/config"
)

// Built-in module names. Their order here is the declaration order used
// by the planner.
const (
	ModuleThumbnailAI      = "thumbnail_ai"
	ModuleThumbnailCompose = "thumbnail_compose"
	ModuleSubtitles        = "subtitles"
	ModulePublishYouTube   = "publish_youtube"
	ModulePublishWebsite   = "publish_website"
	ModuleArchive          = "archive"
)

// Default builds the registry of built-in modules wired to the adapters
// configured in cfg. A module without a configured command runs against
// the stub adapter so a fresh install can exercise the full workflow.
func Default(cfg *config.Config) (*Registry, error) {
	return New(
		builtin(cfg, ModuleThumbnailAI, Descriptor{}),
		builtin(cfg, ModuleThumbnailCompose, Descriptor{
			Prerequisites: []Prerequisite{{Name: ModuleThumbnailAI, Strength: Hard}},
		}),
		builtin(cfg, ModuleSubtitles, Descriptor{
			NeedsInput: true,
		}),
		builtin(cfg, ModulePublishYouTube, Descriptor{
			Prerequisites: []Prerequisite{
				{Name: ModuleSubtitles, Strength: Soft},
				{Name: ModuleThumbnailCompose, Strength: Soft},
			},
			NeedsInput: true,
		}),
		builtin(cfg, ModulePublishWebsite, Descriptor{
			Prerequisites: []Prerequisite{
				{Name: ModuleSubtitles, Strength: Soft},
				{Name: ModuleThumbnailCompose, Strength: Soft},
			},
		}),
		builtin(cfg, ModuleArchive, Descriptor{
			Prerequisites: []Prerequisite{
				{Name: ModulePublishYouTube, Strength: Soft},
				{Name: ModulePublishWebsite, Strength: Soft},
			},
		}),
	)
}

func builtin(cfg *config.Config, name string, d Descriptor) Descriptor {
	d.Name = name
	d.Idempotency = SkipIfSucceeded
	d.Adapter = adapterFor(cfg, name)
	d.Timeout = moduleTimeout(cfg, name)
	return d
}

func adapterFor(cfg *config.Config, name string) adapter.Adapter {
	if cfg != nil {
		if mod := cfg.ModuleFor(name); mod.Command != "" {
			return adapter.NewExec(name, mod.Command, mod.Args...)
		}
	}
	return adapter.NewStub(name)
}

func moduleTimeout(cfg *config.Config, name string) time.Duration {
	if cfg == nil {
		return 0
	}
	if mod := cfg.ModuleFor(name); mod.Timeout > 0 {
		return time.Duration(mod.Timeout) * time.Second
	}
	if cfg.Workflow.DefaultModuleTimeout > 0 {
		return time.Duration(cfg.Workflow.DefaultModuleTimeout) * time.Second
	}
	return 0
}
