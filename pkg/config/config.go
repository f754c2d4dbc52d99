package config

import (
	"context"
	"time"
)

// Config represents the complete configuration for the Graffiticode task service.
// It provides type-safe access to all configuration values with validation.
type Config struct {
	Server     ServerConfig     `koanf:"server"   validate:"required"`
	Storage    StorageConfig    `koanf:"storage"  validate:"required"`
	Postgres   PostgresConfig   `koanf:"postgres"`
	SQLite     SQLiteConfig     `koanf:"sqlite"`
	Redis      RedisConfig      `koanf:"redis"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
	Runtime    RuntimeConfig    `koanf:"runtime"  validate:"required"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string          `koanf:"host"             validate:"required"        env:"SERVER_HOST"`
	Port            int             `koanf:"port"             validate:"min=1,max=65535" env:"SERVER_PORT"`
	AuthHeader      string          `koanf:"auth_header"      validate:"required"        env:"SERVER_AUTH_HEADER"`
	ReadTimeout     time.Duration   `koanf:"read_timeout"                                env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration   `koanf:"write_timeout"                               env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration   `koanf:"shutdown_timeout"                            env:"SERVER_SHUTDOWN_TIMEOUT"`
	MaxBodyBytes    int64           `koanf:"max_body_bytes"   validate:"min=1"           env:"SERVER_MAX_BODY_BYTES"`
	RateLimit       RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig throttles the task API per caller. A zero limit disables it.
type RateLimitConfig struct {
	Limit  int64         `koanf:"limit"  validate:"min=0" env:"SERVER_RATE_LIMIT"`
	Period time.Duration `koanf:"period"                  env:"SERVER_RATE_PERIOD"`
	Prefix string        `koanf:"prefix"                  env:"SERVER_RATE_PREFIX"`
}

// StorageConfig selects the task DAO backend.
type StorageConfig struct {
	Kind           string        `koanf:"kind"            validate:"oneof=memory firestore"     env:"STORAGE_KIND"`
	Driver         string        `koanf:"driver"          validate:"storage_driver"           env:"STORAGE_DRIVER"`
	AutoMigrate    bool          `koanf:"auto_migrate"                                          env:"STORAGE_AUTO_MIGRATE"`
	ConnectRetries uint64        `koanf:"connect_retries"                                       env:"STORAGE_CONNECT_RETRIES"`
	ConnectBackoff time.Duration `koanf:"connect_backoff"                                       env:"STORAGE_CONNECT_BACKOFF"`
}

// PostgresConfig contains database connection configuration.
type PostgresConfig struct {
	ConnString      string          `koanf:"conn_string"       env:"POSTGRES_CONN_STRING"`
	Host            string          `koanf:"host"              env:"POSTGRES_HOST"`
	Port            string          `koanf:"port"              env:"POSTGRES_PORT"`
	User            string          `koanf:"user"              env:"POSTGRES_USER"`
	Password        SensitiveString `koanf:"password"          env:"POSTGRES_PASSWORD"          sensitive:"true"`
	DBName          string          `koanf:"name"              env:"POSTGRES_DB"`
	SSLMode         string          `koanf:"ssl_mode"          env:"POSTGRES_SSL_MODE"`
	MaxOpenConns    int             `koanf:"max_open_conns"    env:"POSTGRES_MAX_OPEN_CONNS"`
	MaxIdleConns    int             `koanf:"max_idle_conns"    env:"POSTGRES_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration   `koanf:"conn_max_lifetime" env:"POSTGRES_CONN_MAX_LIFETIME"`
	PingTimeout     time.Duration   `koanf:"ping_timeout"      env:"POSTGRES_PING_TIMEOUT"`
}

// SQLiteConfig contains the embedded database settings.
type SQLiteConfig struct {
	Path        string        `koanf:"path"         env:"SQLITE_PATH"`
	BusyTimeout time.Duration `koanf:"busy_timeout" env:"SQLITE_BUSY_TIMEOUT"`
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	URL          string          `koanf:"url"           env:"REDIS_URL"`
	Host         string          `koanf:"host"          env:"REDIS_HOST"`
	Port         string          `koanf:"port"          env:"REDIS_PORT"`
	Password     SensitiveString `koanf:"password"      env:"REDIS_PASSWORD"      sensitive:"true"`
	DB           int             `koanf:"db"            env:"REDIS_DB"`
	Prefix       string          `koanf:"prefix"        env:"REDIS_PREFIX"`
	PoolSize     int             `koanf:"pool_size"     env:"REDIS_POOL_SIZE"`
	DialTimeout  time.Duration   `koanf:"dial_timeout"  env:"REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration   `koanf:"read_timeout"  env:"REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration   `koanf:"write_timeout" env:"REDIS_WRITE_TIMEOUT"`
	PingTimeout  time.Duration   `koanf:"ping_timeout"  env:"REDIS_PING_TIMEOUT"`
}

// MonitoringConfig controls the Prometheus metrics endpoint.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"MONITORING_ENABLED"`
	Path    string `koanf:"path"    env:"MONITORING_PATH"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment string `koanf:"environment" validate:"oneof=development staging production" env:"RUNTIME_ENVIRONMENT"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error disabled" env:"RUNTIME_LOG_LEVEL"`
	LogJSON     bool   `koanf:"log_json"                                                    env:"RUNTIME_LOG_JSON"`
	LogSource   bool   `koanf:"log_source"                                                  env:"RUNTIME_LOG_SOURCE"`
}

// Service defines the configuration loading contract.
type Service interface {
	Load(ctx context.Context, sources ...Source) (*Config, error)
	Validate(config *Config) error
	// GetSource returns the source type for a specific configuration key.
	GetSource(key string) SourceType
}

// Source provides configuration data as a nested map.
type Source interface {
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceDefault SourceType = "default"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceCLI     SourceType = "cli"
)

// Metadata tracks where each configuration key came from.
type Metadata struct {
	Sources  map[string]SourceType
	LoadedAt time.Time
}

// Load is a convenience wrapper loading defaults plus environment.
func Load() (*Config, error) {
	return NewService().Load(context.Background())
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3100,
			AuthHeader:      "X-Graffiticode-Uid",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
			RateLimit: RateLimitConfig{
				Period: time.Minute,
				Prefix: "graffiticode:ratelimit:",
			},
		},
		Storage: StorageConfig{
			Kind:           "memory",
			Driver:         "postgres",
			AutoMigrate:    true,
			ConnectRetries: 3,
			ConnectBackoff: 250 * time.Millisecond,
		},
		Postgres: PostgresConfig{
			Host:         "localhost",
			Port:         "5432",
			User:         "postgres",
			DBName:       "graffiticode",
			SSLMode:      "disable",
			MaxOpenConns: 20,
			PingTimeout:  3 * time.Second,
		},
		SQLite: SQLiteConfig{
			Path:        "graffiticode.db",
			BusyTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			Host:        "localhost",
			Port:        "6379",
			Prefix:      "gc",
			PoolSize:    10,
			DialTimeout: 5 * time.Second,
			PingTimeout: 3 * time.Second,
		},
		Monitoring: MonitoringConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Runtime: RuntimeConfig{
			Environment: "development",
			LogLevel:    "info",
		},
	}
}
