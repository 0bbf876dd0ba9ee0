package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEncoding(); err != nil {
		return err
	}
	if err := c.normalizeFFmpeg(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return c.normalizeMetrics()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEncoding() error {
	c.Encoding.Preset = strings.ToLower(strings.TrimSpace(c.Encoding.Preset))
	c.Encoding.Priority = strings.TrimSpace(c.Encoding.Priority)
	if c.Encoding.Priority == "" {
		c.Encoding.Priority = defaultPriority
	}
	if strings.TrimSpace(c.Encoding.OutputDir) == "" {
		c.Encoding.OutputDir = ""
		return nil
	}
	var err error
	if c.Encoding.OutputDir, err = expandPath(strings.TrimSpace(c.Encoding.OutputDir)); err != nil {
		return fmt.Errorf("encoding.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFFmpeg() error {
	if strings.TrimSpace(c.FFmpeg.Binary) == "" {
		if value, ok := os.LookupEnv(ffmpegEnvVar); ok {
			c.FFmpeg.Binary = value
		}
	}
	if strings.TrimSpace(c.FFmpeg.FFprobeBinary) == "" {
		if value, ok := os.LookupEnv(ffprobeEnvVar); ok {
			c.FFmpeg.FFprobeBinary = value
		}
	}
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	var err error
	if strings.ContainsAny(c.FFmpeg.Binary, `/\`) || strings.HasPrefix(c.FFmpeg.Binary, "~") {
		if c.FFmpeg.Binary, err = expandPath(c.FFmpeg.Binary); err != nil {
			return fmt.Errorf("ffmpeg.binary: %w", err)
		}
	}
	if strings.ContainsAny(c.FFmpeg.FFprobeBinary, `/\`) || strings.HasPrefix(c.FFmpeg.FFprobeBinary, "~") {
		if c.FFmpeg.FFprobeBinary, err = expandPath(c.FFmpeg.FFprobeBinary); err != nil {
			return fmt.Errorf("ffmpeg.ffprobe_binary: %w", err)
		}
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

func (c *Config) normalizeMetrics() error {
	c.Metrics.Textfile = strings.TrimSpace(c.Metrics.Textfile)
	if c.Metrics.Textfile == "" {
		return nil
	}
	var err error
	if c.Metrics.Textfile, err = expandPath(c.Metrics.Textfile); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}
