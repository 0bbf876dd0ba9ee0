package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"batchenc/internal/encoding"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateEncoding() error {
	if _, err := encoding.ParsePreset(c.Encoding.Preset); err != nil {
		return fmt.Errorf("encoding.preset: %w", err)
	}
	if c.Encoding.CRF < encoding.MinCRF || c.Encoding.CRF > encoding.MaxCRF {
		return fmt.Errorf("encoding.crf must be between %d and %d", encoding.MinCRF, encoding.MaxCRF)
	}
	if _, err := encoding.ParsePriority(c.Encoding.Priority); err != nil {
		return fmt.Errorf("encoding.priority: %w", err)
	}
	if !c.Encoding.SameDirAsInput && c.Encoding.OutputDir == "" {
		return errors.New("encoding.output_dir must be set when same_dir_as_input is false")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Textfile == "" {
		return nil
	}
	if !strings.HasSuffix(filepath.Base(c.Metrics.Textfile), ".prom") {
		return errors.New("metrics.textfile must end in .prom for the node exporter textfile collector")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be zero or positive")
	}
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}
