package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateModules(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.EventsDir == "" {
		return errors.New("paths.events_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.EventsDir == c.Paths.LogDir {
		return errors.New("paths.events_dir and paths.log_dir must differ")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.HeartbeatInterval >= c.Workflow.HeartbeatTimeout {
		return fmt.Errorf(
			"workflow.heartbeat_interval (%d) must be less than workflow.heartbeat_timeout (%d)",
			c.Workflow.HeartbeatInterval, c.Workflow.HeartbeatTimeout,
		)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateModules() error {
	for name, module := range c.Modules {
		if strings.TrimSpace(name) == "" {
			return errors.New("modules section has an empty module name")
		}
		if module.Timeout < 0 {
			return fmt.Errorf("modules.%s.timeout must not be negative", name)
		}
		if strings.TrimSpace(module.Command) == "" && len(module.Args) > 0 {
			return fmt.Errorf("modules.%s.args set without a command", name)
		}
	}
	return nil
}
