package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.SessionsDir == "" {
		return errors.New("paths.sessions_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.Binary == "" {
		return errors.New("worker.binary must be set")
	}
	if c.Worker.FastMatchTimeout > c.Worker.PrimaryTimeout {
		return fmt.Errorf("worker.fast_match_timeout (%d) must not exceed worker.primary_timeout (%d)",
			c.Worker.FastMatchTimeout, c.Worker.PrimaryTimeout)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxSessions > 1000 {
		return errors.New("workflow.max_sessions must be 1000 or fewer")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
