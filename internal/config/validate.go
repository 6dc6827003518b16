package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateDispatch()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		return fmt.Errorf("paths.media_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateDispatch() error {
	if !c.RedisEnabled() {
		return nil
	}
	if c.Dispatch.JobStream == c.Dispatch.EventStream {
		return fmt.Errorf("dispatch.job_stream and dispatch.event_stream must differ")
	}
	if c.Dispatch.RedisDB < 0 {
		return fmt.Errorf("dispatch.redis_db must not be negative")
	}
	return nil
}
