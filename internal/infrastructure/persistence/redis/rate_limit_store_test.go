package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/pkg/logger"
)

func newTestStore(t *testing.T) (*RateLimitStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	conn := &Connection{Client: client, log: logger.NewNoopLogger()}
	return NewRateLimitStore(conn, logger.NewNoopLogger()), mr
}

func TestRateLimitStore(t *testing.T) {
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	save := func(t *testing.T, store *RateLimitStore, userID string, at time.Time) {
		t.Helper()
		require.NoError(t, store.Save(ctx, models.NewRateLimitRecord(userID, "/api/v1/data/a.json", at)))
	}

	t.Run("count is inclusive on both window bounds", func(t *testing.T) {
		store, _ := newTestStore(t)
		save(t, store, "u1", base)
		save(t, store, "u1", base.Add(30*time.Second))
		save(t, store, "u1", base.Add(60*time.Second))

		count, err := store.CountInWindow(ctx, "u1", base, base.Add(60*time.Second))
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		count, err = store.CountInWindow(ctx, "u1", base.Add(time.Second), base.Add(59*time.Second))
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("users are isolated", func(t *testing.T) {
		store, _ := newTestStore(t)
		save(t, store, "u1", base)
		save(t, store, "u2", base)

		count, err := store.CountInWindow(ctx, "u1", base.Add(-time.Minute), base)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("oldest in window", func(t *testing.T) {
		store, _ := newTestStore(t)

		_, ok, err := store.OldestInWindow(ctx, "u1", base.Add(-time.Minute), base)
		require.NoError(t, err)
		assert.False(t, ok)

		save(t, store, "u1", base.Add(10*time.Second))
		save(t, store, "u1", base.Add(40*time.Second))

		oldest, ok, err := store.OldestInWindow(ctx, "u1", base, base.Add(time.Minute))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, base.Add(10*time.Second).UnixMilli(), oldest.UnixMilli())
	})

	t.Run("delete by user is idempotent", func(t *testing.T) {
		store, _ := newTestStore(t)
		save(t, store, "u1", base)
		save(t, store, "u1", base.Add(time.Second))

		removed, err := store.DeleteByUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		removed, err = store.DeleteByUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), removed)
	})

	t.Run("delete older than trims below the cutoff", func(t *testing.T) {
		store, _ := newTestStore(t)
		save(t, store, "u1", base.Add(-2*time.Hour))
		save(t, store, "u1", base.Add(-time.Minute))
		save(t, store, "u2", base.Add(-3*time.Hour))

		removed, err := store.DeleteOlderThan(ctx, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		count, err := store.CountInWindow(ctx, "u1", base.Add(-24*time.Hour), base)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("keys carry a ttl", func(t *testing.T) {
		store, mr := newTestStore(t)
		save(t, store, "u1", base)
		assert.Greater(t, mr.TTL(userKey("u1")), time.Duration(0))
	})
}
