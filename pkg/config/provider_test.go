package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAMLProvider(t *testing.T) {
	t.Run("Should load nested values from a YAML file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "graffiticode.yaml")
		content := []byte("storage:\n  kind: firestore\n  driver: redis\nredis:\n  url: redis://localhost:6379/0\n  prefix: tasks\n")
		require.NoError(t, os.WriteFile(path, content, 0o600))
		cfg, err := newTestLoader().Load(context.Background(), NewYAMLProvider(path))
		require.NoError(t, err)
		assert.Equal(t, "firestore", cfg.Storage.Kind)
		assert.Equal(t, "redis", cfg.Storage.Driver)
		assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
		assert.Equal(t, "tasks", cfg.Redis.Prefix)
		assert.Equal(t, "6379", cfg.Redis.Port)
	})

	t.Run("Should treat a missing file as empty", func(t *testing.T) {
		data, err := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml")).Load()
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("Should fail on malformed YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("storage: [unclosed"), 0o600))
		_, err := NewYAMLProvider(path).Load()
		require.Error(t, err)
	})

	t.Run("Should drop nil values", func(t *testing.T) {
		out := filterNilValues(map[string]any{"a": nil, "b": map[string]any{"c": nil}, "d": 1})
		assert.Equal(t, map[string]any{"d": 1}, out)
	})
}

func TestCLIProvider(t *testing.T) {
	t.Run("Should map known flags to configuration paths", func(t *testing.T) {
		data, err := NewCLIProvider(map[string]any{
			"storage":   "firestore",
			"port":      8080,
			"log-level": "debug",
			"unknown":   "ignored",
		}).Load()
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"storage": map[string]any{"kind": "firestore"},
			"server":  map[string]any{"port": 8080},
			"runtime": map[string]any{"log_level": "debug"},
		}, data)
	})

	t.Run("Should report a conflict when a path crosses a scalar", func(t *testing.T) {
		m := map[string]any{"server": "scalar"}
		err := setNested(m, "server.port", 1)
		require.Error(t, err)
	})
}

func TestFromContext(t *testing.T) {
	t.Run("Should return the attached configuration", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Kind = "firestore"
		ctx := ContextWithConfig(context.Background(), cfg)
		assert.Same(t, cfg, FromContext(ctx))
	})

	t.Run("Should fall back to defaults", func(t *testing.T) {
		assert.Equal(t, Default(), FromContext(context.Background()))
	})
}

func TestGenerateEnvMappings(t *testing.T) {
	t.Run("Should derive env mappings from struct tags", func(t *testing.T) {
		m := GenerateEnvToConfigMap()
		assert.Equal(t, "storage.kind", m["STORAGE_KIND"])
		assert.Equal(t, "postgres.conn_string", m["POSTGRES_CONN_STRING"])
		assert.Equal(t, "redis.prefix", m["REDIS_PREFIX"])
	})

	t.Run("Should flag sensitive paths", func(t *testing.T) {
		assert.True(t, IsSensitiveConfigPath("postgres.password"))
		assert.True(t, IsSensitiveConfigPath("redis.password"))
		assert.False(t, IsSensitiveConfigPath("redis.prefix"))
	})
}
