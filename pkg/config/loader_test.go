package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	data       map[string]any
	sourceType SourceType
	err        error
}

func (m *mockSource) Load() (map[string]any, error) {
	return m.data, m.err
}

func (m *mockSource) Type() SourceType {
	return m.sourceType
}

func newTestLoader(environ ...string) *loader {
	l, ok := NewService().(*loader)
	if !ok {
		panic("unexpected service type")
	}
	l.environ = func() []string { return environ }
	return l
}

func TestLoader_Load(t *testing.T) {
	t.Run("Should load default configuration when no sources provided", func(t *testing.T) {
		cfg, err := newTestLoader().Load(context.Background())
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 3100, cfg.Server.Port)
		assert.Equal(t, "memory", cfg.Storage.Kind)
		assert.Equal(t, "postgres", cfg.Storage.Driver)
		assert.Equal(t, 250*time.Millisecond, cfg.Storage.ConnectBackoff)
		assert.Equal(t, "development", cfg.Runtime.Environment)
	})

	t.Run("Should apply sources in precedence order", func(t *testing.T) {
		l := newTestLoader()
		source1 := &mockSource{
			data: map[string]any{
				"server": map[string]any{
					"host": "source1.example.com",
					"port": 9001,
				},
			},
			sourceType: SourceYAML,
		}
		source2 := &mockSource{
			data: map[string]any{
				"server": map[string]any{
					"host": "source2.example.com",
				},
			},
			sourceType: SourceCLI,
		}
		cfg, err := l.Load(context.Background(), source1, source2)
		require.NoError(t, err)
		assert.Equal(t, "source2.example.com", cfg.Server.Host)
		assert.Equal(t, 9001, cfg.Server.Port)
		assert.Equal(t, SourceCLI, l.GetSource("server.host"))
		assert.Equal(t, SourceYAML, l.GetSource("server.port"))
		assert.Equal(t, SourceDefault, l.GetSource("storage.kind"))
	})

	t.Run("Should let mapped environment variables override sources", func(t *testing.T) {
		l := newTestLoader(
			"STORAGE_KIND=firestore",
			"STORAGE_DRIVER=sqlite",
			"SQLITE_PATH=/tmp/tasks.db",
			"SQLITE_BUSY_TIMEOUT=2s",
			"REDIS_PASSWORD=s3cret",
			"UNRELATED_VARIABLE=ignored",
		)
		yamlSource := &mockSource{
			data:       map[string]any{"storage": map[string]any{"kind": "memory"}},
			sourceType: SourceYAML,
		}
		cfg, err := l.Load(context.Background(), yamlSource)
		require.NoError(t, err)
		assert.Equal(t, "firestore", cfg.Storage.Kind)
		assert.Equal(t, "sqlite", cfg.Storage.Driver)
		assert.Equal(t, "/tmp/tasks.db", cfg.SQLite.Path)
		assert.Equal(t, 2*time.Second, cfg.SQLite.BusyTimeout)
		assert.Equal(t, "s3cret", cfg.Redis.Password.Value())
		assert.Equal(t, SourceEnv, l.GetSource("storage.kind"))
	})

	t.Run("Should let CLI flags override environment variables", func(t *testing.T) {
		l := newTestLoader("RUNTIME_LOG_LEVEL=warn", "SERVER_PORT=4000")
		cfg, err := l.Load(context.Background(), NewCLIProvider(map[string]any{"log-level": "debug"}))
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Runtime.LogLevel)
		assert.Equal(t, 4000, cfg.Server.Port)
		assert.Equal(t, SourceCLI, l.GetSource("runtime.log_level"))
		assert.Equal(t, SourceEnv, l.GetSource("server.port"))
	})

	t.Run("Should decode rate limit flags given as strings", func(t *testing.T) {
		l := newTestLoader()
		cfg, err := l.Load(context.Background(), NewCLIProvider(map[string]any{"rate-limit": "5", "rate-period": "30s"}))
		require.NoError(t, err)
		assert.Equal(t, int64(5), cfg.Server.RateLimit.Limit)
		assert.Equal(t, 30*time.Second, cfg.Server.RateLimit.Period)
		assert.Equal(t, SourceCLI, l.GetSource("server.rate_limit.limit"))
	})

	t.Run("Should reject unknown storage kinds", func(t *testing.T) {
		l := newTestLoader("STORAGE_KIND=Memory")
		_, err := l.Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("Should reject unknown storage drivers", func(t *testing.T) {
		l := newTestLoader("STORAGE_DRIVER=mongo")
		_, err := l.Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage_driver")
	})

	t.Run("Should surface source load errors", func(t *testing.T) {
		l := newTestLoader()
		_, err := l.Load(context.Background(), &mockSource{sourceType: SourceYAML, err: assert.AnError})
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestLoader_Validate(t *testing.T) {
	t.Run("Should reject nil configuration", func(t *testing.T) {
		err := newTestLoader().Validate(nil)
		require.Error(t, err)
	})

	t.Run("Should require postgres connection details for the persistent backend", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Kind = "firestore"
		cfg.Storage.Driver = "postgres"
		cfg.Postgres.Host = ""
		err := newTestLoader().Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "postgres configuration incomplete")
	})

	t.Run("Should accept a postgres connection string alone", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Kind = "firestore"
		cfg.Postgres = PostgresConfig{ConnString: "postgres://localhost/tasks"}
		assert.NoError(t, newTestLoader().Validate(cfg))
	})

	t.Run("Should require a redis address for the redis driver", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Kind = "firestore"
		cfg.Storage.Driver = "redis"
		cfg.Redis.Host = ""
		err := newTestLoader().Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis configuration incomplete")
	})

	t.Run("Should require a period when rate limiting is enabled", func(t *testing.T) {
		cfg := Default()
		cfg.Server.RateLimit = RateLimitConfig{Limit: 10}
		err := newTestLoader().Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limit period")
	})

	t.Run("Should map nested rate limit variables", func(t *testing.T) {
		cfg, err := newTestLoader("SERVER_RATE_LIMIT=5", "SERVER_RATE_PERIOD=30s").Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(5), cfg.Server.RateLimit.Limit)
		assert.Equal(t, 30*time.Second, cfg.Server.RateLimit.Period)
	})

	t.Run("Should skip driver checks for the memory backend", func(t *testing.T) {
		cfg := Default()
		cfg.Postgres = PostgresConfig{}
		assert.NoError(t, newTestLoader().Validate(cfg))
	})
}

func TestFlattenMap(t *testing.T) {
	t.Run("Should flatten nested maps into dotted keys", func(t *testing.T) {
		out := flattenMap("", map[string]any{
			"server":  map[string]any{"host": "h", "port": 1},
			"storage": map[string]any{"kind": "memory"},
		})
		assert.Equal(t, map[string]any{
			"server.host":  "h",
			"server.port":  1,
			"storage.kind": "memory",
		}, out)
	})
}
