package config

const (
	defaultEventsDir            = "~/.local/share/vestry/events"
	defaultLogDir               = "~/.local/share/vestry/logs"
	defaultAssetsDir            = "~/.local/share/vestry/assets"
	defaultSocketPath           = "~/.local/share/vestry/vestryd.sock"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultHeartbeatInterval    = 15
	defaultHeartbeatTimeout     = 120
	defaultModuleTimeout        = 3600
	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			EventsDir:  defaultEventsDir,
			LogDir:     defaultLogDir,
			AssetsDir:  defaultAssetsDir,
			SocketPath: defaultSocketPath,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Runs:           true,
			Errors:         true,
		},
		Workflow: Workflow{
			HeartbeatInterval:    defaultHeartbeatInterval,
			HeartbeatTimeout:     defaultHeartbeatTimeout,
			DefaultModuleTimeout: defaultModuleTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
