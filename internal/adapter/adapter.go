package adapter

import (
	"context"

	"vestry/internal/event"
)

// Request is the structured input handed to a module adapter. It carries
// everything the external tool needs: event identity and metadata, resolved
// absolute input paths, prior module outputs the module consumes, and the
// per-module configuration options.
type Request struct {
	EventID      string              `json:"event_id"`
	Metadata     event.Metadata      `json:"metadata"`
	InputFiles   []string            `json:"input_files,omitempty"`
	PriorOutputs map[string][]string `json:"prior_outputs,omitempty"`
	Options      map[string]string   `json:"options,omitempty"`
	OutputDir    string              `json:"output_dir"`
	AssetsDir    string              `json:"assets_dir,omitempty"`
	ArchiveDir   string              `json:"archive_dir,omitempty"`
}

// Result is a successful adapter outcome: the files it produced plus
// arbitrary result metadata for the run record.
type Result struct {
	OutputFiles []string          `json:"output_files,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Adapter executes one module's external work. Implementations must be safe
// to invoke multiple times for the same event and must not corrupt prior
// successful outputs of other modules on failure. Failures are reported as
// errors tagged with the services error markers.
type Adapter interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// Func adapts a plain function to the Adapter interface.
type Func func(ctx context.Context, req Request) (Result, error)

func (f Func) Execute(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
