package monitoring

import (
	"fmt"
	"strings"

	"github.com/graffiticode/graffiticode/pkg/config"
)

// Config holds configuration for monitoring service
type Config struct {
	Enabled bool
	Path    string
}

// DefaultConfig returns default monitoring configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled: false,
		Path:    "/metrics",
	}
}

// FromAppConfig converts application settings into monitoring settings.
func FromAppConfig(cfg *config.MonitoringConfig) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	out := &Config{Enabled: cfg.Enabled, Path: cfg.Path}
	if out.Path == "" {
		out.Path = DefaultConfig().Path
	}
	return out
}

// Validate validates the monitoring configuration
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("monitoring path cannot be empty")
	}
	if c.Path[0] != '/' {
		return fmt.Errorf("monitoring path must start with '/': got %s", c.Path)
	}
	if strings.HasPrefix(c.Path, "/api/") {
		return fmt.Errorf("monitoring path cannot be under /api/")
	}
	if strings.ContainsRune(c.Path, '?') {
		return fmt.Errorf("monitoring path cannot contain query parameters")
	}
	return nil
}
