package config

import (
	"errors"
	"fmt"

	"github.com/agleyzer/clipshuffle/internal/logging"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Input == "" {
		return errors.New("input must be set")
	}
	if c.Output == "" {
		return errors.New("output must be set")
	}
	if c.SegmentSeconds <= 0 {
		return fmt.Errorf("segment_seconds must be positive, got %d", c.SegmentSeconds)
	}
	if c.DefaultFPS <= 0 {
		return fmt.Errorf("default_fps must be positive, got %d", c.DefaultFPS)
	}
	if c.AttemptFactor <= 0 {
		return fmt.Errorf("attempt_factor must be positive, got %g", c.AttemptFactor)
	}
	return c.validateLogging()
}

func (c *Config) validateLogging() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "", logging.FormatConsole, logging.FormatText, logging.FormatJSON:
		return nil
	default:
		return fmt.Errorf("logging.format must be console, text or json, got %q", c.Logging.Format)
	}
}
