package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/graffiticode/graffiticode/pkg/logger"
	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"
)

const (
	memoryPath         = ":memory:"
	defaultBusyTimeout = 5 * time.Second
	defaultMaxConns    = 4
)

// Store owns the database/sql handle shared by the repository.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens the database and applies connection settings.
// In-memory databases are limited to one connection so every query sees the same data.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sqlite: config is required")
	}
	dsn, inMemory := buildDSN(cfg)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	configurePool(db, cfg, inMemory)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	logger.FromContext(ctx).With(
		"store_driver", "sqlite",
		"path", cfg.Path,
		"in_memory", inMemory,
	).Info("Store initialized")
	return &Store{db: db, path: cfg.Path}, nil
}

// DB exposes the database handle to the repository.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database handle.
func (s *Store) Close(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}
	logger.FromContext(ctx).Info("SQLite store closed", "path", s.path)
	return nil
}

// HealthCheck verifies the database answers.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check failed: %w", err)
	}
	return nil
}

// buildDSN returns the modernc DSN for cfg and whether it is in-memory.
func buildDSN(cfg *Config) (string, bool) {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	params.Add("_pragma", "foreign_keys(ON)")
	params.Set("_txlock", "immediate")
	path := strings.TrimSpace(cfg.Path)
	if path == "" || path == memoryPath {
		return "file::memory:?" + params.Encode(), true
	}
	params.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + params.Encode(), false
}

func configurePool(db *sql.DB, cfg *Config, inMemory bool) {
	if inMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxConns
	}
	db.SetMaxOpenConns(maxOpen)
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}
