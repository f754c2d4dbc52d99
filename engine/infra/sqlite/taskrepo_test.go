package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/graffiticode/graffiticode/engine/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *TaskRepo {
	t.Helper()
	ctx := context.Background()
	repo, err := OpenRepository(ctx, &Config{Path: ":memory:"}, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close(ctx) })
	return repo
}

func TestTaskRepo_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("Should insert a new task with a fresh ACL", func(t *testing.T) {
		repo := newTestRepo(t)
		id, created, err := repo.Upsert(ctx, &task.UpsertInput{
			NewID:    "t1",
			Lang:     "0002",
			Code:     map[string]any{"expr": "print 1.."},
			CodeHash: "h1",
			Auth:     &task.Auth{UID: "alice"},
		})
		require.NoError(t, err)
		assert.Equal(t, "t1", id)
		assert.True(t, created)
		rec, err := repo.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "0002", rec.Lang)
		assert.Equal(t, map[string]any{"expr": "print 1.."}, rec.Code)
		assert.Equal(t, int64(1), rec.Count)
		assert.False(t, rec.ACL.Public)
		assert.Equal(t, map[string]bool{"alice": true}, rec.ACL.UIDs)
		assert.Nil(t, rec.Mark)
	})

	t.Run("Should reuse the task, count and union the ACL on a hit", func(t *testing.T) {
		repo := newTestRepo(t)
		in := &task.UpsertInput{NewID: "t1", Lang: "1", Code: "x", CodeHash: "h", Auth: &task.Auth{UID: "a"}}
		_, _, err := repo.Upsert(ctx, in)
		require.NoError(t, err)
		id, created, err := repo.Upsert(ctx, &task.UpsertInput{
			NewID: "t2", Lang: "1", Code: "x", CodeHash: "h", Auth: &task.Auth{UID: "b"}, Mark: 7,
		})
		require.NoError(t, err)
		assert.Equal(t, "t1", id)
		assert.False(t, created)
		_, _, err = repo.Upsert(ctx, &task.UpsertInput{NewID: "t3", Lang: "1", Code: "x", CodeHash: "h"})
		require.NoError(t, err)
		rec, err := repo.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), rec.Count)
		assert.True(t, rec.ACL.Public)
		assert.Equal(t, map[string]bool{"a": true, "b": true}, rec.ACL.UIDs)
		assert.Equal(t, float64(7), rec.Mark)
		_, err = repo.Get(ctx, "t2")
		assert.ErrorIs(t, err, task.ErrNotFound)
	})

	t.Run("Should store null code", func(t *testing.T) {
		repo := newTestRepo(t)
		_, _, err := repo.Upsert(ctx, &task.UpsertInput{NewID: "n", Lang: "1", CodeHash: "hn"})
		require.NoError(t, err)
		rec, err := repo.Get(ctx, "n")
		require.NoError(t, err)
		assert.Nil(t, rec.Code)
		assert.True(t, rec.ACL.Public)
	})

	t.Run("Should produce one task under concurrent first submissions", func(t *testing.T) {
		repo := newTestRepo(t)
		var wg sync.WaitGroup
		ids := make([]string, 8)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id, _, err := repo.Upsert(ctx, &task.UpsertInput{
					NewID:    fmt.Sprintf("t%d", i),
					Lang:     "1",
					Code:     "same",
					CodeHash: "same-hash",
					Auth:     &task.Auth{UID: fmt.Sprintf("u%d", i)},
				})
				assert.NoError(t, err)
				ids[i] = id
			}(i)
		}
		wg.Wait()
		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
		rec, err := repo.Get(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, int64(len(ids)), rec.Count)
		assert.Len(t, rec.ACL.UIDs, len(ids))
	})
}

func TestTaskRepo_Get(t *testing.T) {
	t.Run("Should return ErrNotFound for unknown ids", func(t *testing.T) {
		repo := newTestRepo(t)
		rec, err := repo.Get(context.Background(), "nope")
		assert.Nil(t, rec)
		assert.True(t, task.IsNotFound(err))
	})
}

func TestTaskRepo_Ping(t *testing.T) {
	t.Run("Should answer while open and fail once closed", func(t *testing.T) {
		ctx := context.Background()
		repo, err := OpenRepository(ctx, &Config{Path: ":memory:"}, true)
		require.NoError(t, err)
		require.NoError(t, repo.Ping(ctx))
		require.NoError(t, repo.Close(ctx))
		assert.Error(t, repo.Ping(ctx))
	})
}
