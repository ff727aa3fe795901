package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWAAPI(); err != nil {
		return err
	}
	c.normalizeImport()
	if err := c.normalizeSession(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSec
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWAAPI() error {
	if value, ok := os.LookupEnv("WAAPI_HOST"); ok && strings.TrimSpace(value) != "" {
		c.WAAPI.Host = value
	}
	if value, ok := os.LookupEnv("WAAPI_PORT"); ok && strings.TrimSpace(value) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("WAAPI_PORT: %w", err)
		}
		c.WAAPI.Port = port
	}
	c.WAAPI.Host = strings.TrimSpace(c.WAAPI.Host)
	if c.WAAPI.Host == "" {
		c.WAAPI.Host = defaultWAAPIHost
	}
	c.WAAPI.Serializer = strings.ToLower(strings.TrimSpace(c.WAAPI.Serializer))
	if c.WAAPI.Serializer == "" {
		c.WAAPI.Serializer = defaultSerializer
	}
	if c.WAAPI.MinRetryDelayMS <= 0 {
		c.WAAPI.MinRetryDelayMS = defaultMinRetryDelayMS
	}
	if c.WAAPI.MaxRetryDelayMS <= 0 {
		c.WAAPI.MaxRetryDelayMS = defaultMaxRetryDelayMS
	}
	if c.WAAPI.PollIntervalMS <= 0 {
		c.WAAPI.PollIntervalMS = defaultWAAPIPollMS
	}
	if c.WAAPI.ReadRetryAttempts <= 0 {
		c.WAAPI.ReadRetryAttempts = defaultReadRetryAttempts
	}
	if c.WAAPI.ReadRetryDelayMS < 0 {
		c.WAAPI.ReadRetryDelayMS = defaultReadRetryDelayMS
	}
	return nil
}

func (c *Config) normalizeImport() {
	c.Import.ConflictPolicy = normalizeEnum(c.Import.ConflictPolicy, defaultConflictPolicy)
	c.Import.TemplatePolicy = normalizeEnum(c.Import.TemplatePolicy, defaultTemplatePolicy)
	c.Import.UndoGroupName = strings.TrimSpace(c.Import.UndoGroupName)
	if c.Import.UndoGroupName == "" {
		c.Import.UndoGroupName = defaultUndoGroupName
	}
	c.Import.DefaultLanguage = strings.TrimSpace(c.Import.DefaultLanguage)
	if c.Import.DefaultLanguage == "" {
		c.Import.DefaultLanguage = defaultLanguage
	}
}

func (c *Config) normalizeSession() error {
	var err error
	if strings.TrimSpace(c.Session.Manifest) != "" {
		if c.Session.Manifest, err = expandPath(c.Session.Manifest); err != nil {
			return fmt.Errorf("session.manifest: %w", err)
		}
	}
	if c.Session.PollIntervalMS <= 0 {
		c.Session.PollIntervalMS = defaultSessionPollMS
	}
	return nil
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

// normalizeEnum lowercases and accepts both "use-existing" and "use_existing".
func normalizeEnum(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, "-", "_")
	if value == "" {
		return fallback
	}
	return value
}
