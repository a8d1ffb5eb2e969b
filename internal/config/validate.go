package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if _, err := c.PlatformDisplays(); err != nil {
		return err
	}
	if c.Repair.MaxParallel < 1 {
		return errors.New("repair.max_parallel must be at least 1")
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

func (c *Config) validateVideo() error {
	for name, res := range map[string]Resolution{
		"video.horizontal": c.Video.Horizontal,
		"video.vertical":   c.Video.Vertical,
	} {
		if res.Width <= 0 || res.Height <= 0 {
			return fmt.Errorf("%s must have a positive width and height", name)
		}
	}
	return nil
}
