package testsupport

import (
	"path/filepath"
	"testing"

	"vestry/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.EventsDir = filepath.Join(base, "events")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.AssetsDir = filepath.Join(base, "assets")
	cfg.Paths.ArchiveDir = filepath.Join(base, "archive")
	cfg.Paths.SocketPath = filepath.Join(base, "vestryd.sock")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithHeartbeat overrides the workflow heartbeat timing on the test config.
func WithHeartbeat(interval, timeout int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.HeartbeatInterval = interval
		cfg.Workflow.HeartbeatTimeout = timeout
	}
}

// WithModuleCommand wires an adapter command for one module on the test config.
func WithModuleCommand(name, command string, args ...string) ConfigOption {
	return func(cfg *config.Config) {
		if cfg.Modules == nil {
			cfg.Modules = map[string]config.Module{}
		}
		module := cfg.Modules[name]
		module.Command = command
		module.Args = args
		cfg.Modules[name] = module
	}
}
