package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWAAPI(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWAAPI() error {
	if c.WAAPI.Port <= 0 || c.WAAPI.Port > 65535 {
		return fmt.Errorf("waapi.port must be between 1 and 65535, got %d", c.WAAPI.Port)
	}
	switch c.WAAPI.Serializer {
	case "json", "cbor":
	default:
		return fmt.Errorf("waapi.serializer must be json or cbor, got %q", c.WAAPI.Serializer)
	}
	if c.WAAPI.CallTimeoutSeconds < 0 {
		return errors.New("waapi.call_timeout_seconds must be zero (no timeout) or positive")
	}
	if c.WAAPI.MaxRetryDelayMS < c.WAAPI.MinRetryDelayMS {
		return errors.New("waapi.max_retry_delay_ms must be >= waapi.min_retry_delay_ms")
	}
	return nil
}

func (c *Config) validateImport() error {
	switch c.Import.ConflictPolicy {
	case "use_existing", "create_new", "replace":
	default:
		return fmt.Errorf("import.conflict_policy must be use_existing, create_new or replace, got %q", c.Import.ConflictPolicy)
	}
	switch c.Import.TemplatePolicy {
	case "new_only", "all":
	default:
		return fmt.Errorf("import.template_policy must be new_only or all, got %q", c.Import.TemplatePolicy)
	}
	if c.Import.SelectionChannel < 0 {
		return errors.New("import.selection_channel must be non-negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
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
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}
