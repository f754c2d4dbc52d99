package redis

import (
	"time"

	"github.com/graffiticode/graffiticode/pkg/config"
)

// Config holds Redis connection settings for the task repository.
type Config struct {
	URL          string
	Host         string
	Port         string
	Password     string
	DB           int
	Prefix       string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingTimeout  time.Duration
}

// NewConfig converts application settings into driver settings.
func NewConfig(cfg *config.RedisConfig) *Config {
	if cfg == nil {
		return &Config{Prefix: defaultPrefix}
	}
	return &Config{
		URL:          cfg.URL,
		Host:         cfg.Host,
		Port:         cfg.Port,
		Password:     cfg.Password.Value(),
		DB:           cfg.DB,
		Prefix:       cfg.Prefix,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PingTimeout:  cfg.PingTimeout,
	}
}
