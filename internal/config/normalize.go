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
	c.normalizeLogging()
	c.normalizeAccount()
	c.normalizePlatforms()
	if c.Repair.MaxParallel == 0 {
		c.Repair.MaxParallel = defaultRepairParallel
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
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

func (c *Config) normalizeAccount() {
	c.Account.Username = strings.TrimSpace(c.Account.Username)
	if c.Account.Username == "" {
		if value, ok := os.LookupEnv("DUALOUT_USER"); ok {
			c.Account.Username = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizePlatforms() {
	if len(c.Platforms) == 0 {
		return
	}
	normalized := make(map[string]string, len(c.Platforms))
	for name, value := range c.Platforms {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		normalized[key] = strings.ToLower(strings.TrimSpace(value))
	}
	c.Platforms = normalized
}
