package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/opendgw/odg/pkg/constants"
	"github.com/opendgw/odg/pkg/errors"
	"github.com/opendgw/odg/pkg/logger"
)

// InvalidateFunc receives the normalized resource path of a removed file.
type InvalidateFunc func(path string)

// RefreshFunc receives the normalized resource path of a written file so the
// cached metadata can be replaced in place.
type RefreshFunc func(ctx context.Context, path string)

// Watcher propagates filesystem changes under the data root to the caches:
// a written file refreshes its cached metadata, a removed file drops the
// entry, and either way the content cache is invalidated so the next read
// serves fresh bytes.
type Watcher struct {
	store      *ResourceStore
	watcher    *fsnotify.Watcher
	invalidate InvalidateFunc
	refresh    RefreshFunc
	log        logger.Logger
}

// NewWatcher creates a watcher over the store's data root, registering every
// existing subdirectory.
func NewWatcher(store *ResourceStore, invalidate InvalidateFunc, refresh RefreshFunc, log logger.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.ErrInternal("watcher init failed").WithCause(err)
	}

	w := &Watcher{
		store:      store,
		watcher:    fsw,
		invalidate: invalidate,
		refresh:    refresh,
		log:        log.WithComponent("fs-watcher"),
	}

	err = filepath.WalkDir(store.Root(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return nil, errors.ErrInternal("watcher registration failed").WithCause(err)
	}

	return w, nil
}

// Run processes events until the context is canceled. Cancellation is the
// normal shutdown path and returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn(ctx, "watcher error", logger.Err(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	// New directories need explicit registration; fsnotify is not recursive.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.log.Warn(ctx, "failed to watch new directory",
					logger.String("dir", event.Name), logger.Err(err))
			}
			return
		}
	}

	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	if !strings.HasSuffix(event.Name, constants.DataPathExtension) {
		return
	}

	rel, err := filepath.Rel(w.store.Root(), event.Name)
	if err != nil {
		return
	}
	path := filepath.ToSlash(rel)

	w.store.InvalidateContent(path)
	if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		if w.invalidate != nil {
			w.invalidate(path)
		}
	} else if w.refresh != nil {
		w.refresh(ctx, path)
	} else if w.invalidate != nil {
		w.invalidate(path)
	}
	w.log.Debug(ctx, "processed changed resource",
		logger.String("path", path),
		logger.String("op", event.Op.String()),
	)
}
