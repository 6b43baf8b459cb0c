package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("output.color: unsupported value %q (use auto, always, or never)", c.Output.Color)
	}
	return nil
}

func (c *Config) validateTools() error {
	switch c.Tools.SyncTool {
	case SyncToolRobocopy, SyncToolRsync:
	default:
		return fmt.Errorf("tools.sync_tool: unsupported value %q (use %s or %s)", c.Tools.SyncTool, SyncToolRobocopy, SyncToolRsync)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.watch_interval_minutes": c.Workflow.WatchIntervalMinutes,
		"workflow.tick_seconds":           c.Workflow.TickSeconds,
		"workflow.kill_grace_seconds":     c.Workflow.KillGraceSeconds,
	}); err != nil {
		return err
	}
	if c.Workflow.SettleSeconds < 0 {
		return errors.New("workflow.settle_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
