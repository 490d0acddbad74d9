package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendgw/odg/pkg/logger"
)

func newWatchedStore(t *testing.T) (*ResourceStore, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "datasets")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"k":"v"}`), 0o644))

	store, err := NewResourceStore(root, time.Minute, logger.NewNoopLogger())
	require.NoError(t, err)
	return store, dir
}

func TestWatcher(t *testing.T) {
	t.Run("cancellation is a clean stop", func(t *testing.T) {
		store, _ := newWatchedStore(t)
		w, err := NewWatcher(store, nil, nil, logger.NewNoopLogger())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("watcher did not stop after cancellation")
		}
	})

	t.Run("writes refresh and removals invalidate", func(t *testing.T) {
		store, dir := newWatchedStore(t)

		refreshed := make(chan string, 8)
		invalidated := make(chan string, 8)
		w, err := NewWatcher(store,
			func(path string) { invalidated <- path },
			func(_ context.Context, path string) { refreshed <- path },
			logger.NewNoopLogger())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = w.Run(ctx) }()

		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"k":"v2"}`), 0o644))
		select {
		case path := <-refreshed:
			assert.Equal(t, "datasets/a.json", path)
		case <-time.After(2 * time.Second):
			t.Fatal("write event did not trigger a metadata refresh")
		}

		require.NoError(t, os.Remove(filepath.Join(dir, "a.json")))
		select {
		case path := <-invalidated:
			assert.Equal(t, "datasets/a.json", path)
		case <-time.After(2 * time.Second):
			t.Fatal("remove event did not trigger an invalidation")
		}
	})
}
