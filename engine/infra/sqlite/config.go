package sqlite

import (
	"time"

	"github.com/graffiticode/graffiticode/pkg/config"
)

// Config captures SQLite store configuration derived from application settings.
type Config struct {
	// Path is the database location or ":memory:" for in-memory deployments.
	Path string

	// MaxOpenConns controls the pool size exposed by database/sql.
	MaxOpenConns int

	// MaxIdleConns limits idle connections retained in the pool.
	MaxIdleConns int

	// ConnMaxLifetime bounds connection reuse duration.
	ConnMaxLifetime time.Duration

	// BusyTimeout configures sqlite busy timeout via PRAGMA busy_timeout.
	BusyTimeout time.Duration
}

// NewConfig converts application settings into driver settings.
func NewConfig(cfg *config.SQLiteConfig) *Config {
	if cfg == nil {
		return &Config{Path: memoryPath}
	}
	return &Config{Path: cfg.Path, BusyTimeout: cfg.BusyTimeout}
}
