// Package redis stores task records in Redis hashes with a Lua-scripted upsert.
package redis

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/graffiticode/graffiticode/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

const fallbackPingTimeout = 10 * time.Second

// Client owns a go-redis connection pool.
type Client struct {
	client goredis.UniversalClient
	config *Config
	once   sync.Once
}

// NewClient connects to Redis and pings it within the configured timeout.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	client, err := buildClient(cfg)
	if err != nil {
		return nil, err
	}
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = fallbackPingTimeout
	}
	if err := ping(ctx, client, timeout); err != nil {
		client.Close()
		return nil, err
	}
	logger.FromContext(ctx).With(
		"store_driver", "redis",
		"host", cfg.Host,
		"port", cfg.Port,
		"db", cfg.DB,
		"prefix", cfg.Prefix,
		"pool_size", cfg.PoolSize,
	).Info("Store initialized")
	return &Client{client: client, config: cfg}, nil
}

func buildClient(cfg *Config) (goredis.UniversalClient, error) {
	if cfg.URL != "" {
		opt, err := goredis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing Redis URL: %w", err)
		}
		applyConfigToOptions(opt, cfg)
		return goredis.NewClient(opt), nil
	}
	opt := &goredis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	applyConfigToOptions(opt, cfg)
	return goredis.NewClient(opt), nil
}

func applyConfigToOptions(opt *goredis.Options, cfg *Config) {
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opt.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opt.WriteTimeout = cfg.WriteTimeout
	}
}

func ping(ctx context.Context, client goredis.UniversalClient, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("pinging Redis server (timeout=%s): %w", timeout, err)
	}
	return nil
}

// HealthCheck pings the server within the configured ping timeout.
func (c *Client) HealthCheck(ctx context.Context) error {
	timeout := c.config.PingTimeout
	if timeout <= 0 {
		timeout = fallbackPingTimeout
	}
	return ping(ctx, c.client, timeout)
}

// Redis returns the underlying client.
func (c *Client) Redis() goredis.UniversalClient {
	return c.client
}

// Close shuts down the pool once.
func (c *Client) Close(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		err = c.client.Close()
		if err != nil {
			logger.FromContext(ctx).Error("Redis connection close failed", "error", err)
		} else {
			logger.FromContext(ctx).Debug("Redis connection closed")
		}
	})
	return err
}
