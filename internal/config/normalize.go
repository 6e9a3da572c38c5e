package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorker()
	c.normalizeWorkflow()
	c.normalizeStream()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.SessionsDir) == "" {
		c.Paths.SessionsDir = defaultSessionsDir
	}
	if c.Paths.SessionsDir, err = expandPath(c.Paths.SessionsDir); err != nil {
		return fmt.Errorf("paths.sessions_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = defaultSocketPath
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeWorker() {
	c.Worker.Binary = strings.TrimSpace(c.Worker.Binary)
	if c.Worker.Binary == "" {
		c.Worker.Binary = defaultWorkerBinary
	}
	if c.Worker.GracePeriod <= 0 {
		c.Worker.GracePeriod = defaultGracePeriod
	}
	if c.Worker.PrimaryTimeout <= 0 {
		c.Worker.PrimaryTimeout = defaultPrimaryTimeout
	}
	if c.Worker.FastMatchTimeout <= 0 {
		c.Worker.FastMatchTimeout = defaultFastMatchTimeout
	}
	if c.Worker.SecondaryTimeout <= 0 {
		c.Worker.SecondaryTimeout = defaultSecondaryTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.MaxSessions <= 0 {
		c.Workflow.MaxSessions = defaultMaxSessions
	}
	if c.Workflow.SessionTTLHours <= 0 {
		c.Workflow.SessionTTLHours = defaultSessionTTLHours
	}
	if c.Workflow.SweepInterval <= 0 {
		c.Workflow.SweepInterval = defaultSweepInterval
	}
	if c.Workflow.DebounceMillis <= 0 {
		c.Workflow.DebounceMillis = defaultDebounceMillis
	}
}

func (c *Config) normalizeStream() {
	if c.Stream.HeartbeatInterval <= 0 {
		c.Stream.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Stream.SubscriberBuffer <= 0 {
		c.Stream.SubscriberBuffer = defaultSubscriberBuffer
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
