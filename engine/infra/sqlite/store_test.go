package sqlite

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	t.Run("Should build DSN for file path with pragmas", func(t *testing.T) {
		d, inMemory := buildDSN(&Config{Path: "/tmp/test.db", BusyTimeout: 2 * time.Second})
		assert.False(t, inMemory)
		decoded, err := url.QueryUnescape(d)
		require.NoError(t, err)
		assert.Contains(t, decoded, "file:/tmp/test.db?")
		assert.Contains(t, decoded, "_pragma=journal_mode(WAL)")
		assert.Contains(t, decoded, "_pragma=foreign_keys(ON)")
		assert.Contains(t, decoded, "_pragma=busy_timeout(2000)")
		assert.Contains(t, decoded, "_txlock=immediate")
	})

	t.Run("Should build DSN for in-memory databases", func(t *testing.T) {
		d, inMemory := buildDSN(&Config{Path: ":memory:"})
		assert.True(t, inMemory)
		assert.Contains(t, d, "file::memory:?")
		decoded, err := url.QueryUnescape(d)
		require.NoError(t, err)
		assert.Contains(t, decoded, "_pragma=busy_timeout(5000)")
		assert.NotContains(t, decoded, "journal_mode")
	})
}

func TestMigrations(t *testing.T) {
	t.Run("Should create the task tables", func(t *testing.T) {
		ctx := context.Background()
		s, err := NewStore(ctx, &Config{Path: ":memory:"})
		require.NoError(t, err)
		defer s.Close(ctx)
		require.NoError(t, ApplyMigrations(ctx, s.DB()))
		var n int
		err = s.DB().QueryRowContext(
			ctx,
			`SELECT count(*) FROM sqlite_master WHERE type='table' AND name IN ('tasks','task_hashes')`,
		).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		require.NoError(t, s.HealthCheck(ctx))
	})
}
