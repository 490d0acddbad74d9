// Package fs implements the filesystem-backed resource store. Resources are
// JSON files under a single data root; metadata comes from stat, the ETag is
// derived from (size, mtime), and content bytes are held in a TTL cache.
package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/internal/domain/repository"
	"github.com/opendgw/odg/pkg/constants"
	"github.com/opendgw/odg/pkg/errors"
	"github.com/opendgw/odg/pkg/logger"
)

// ResourceStore serves resource metadata and content from a data root
// directory.
type ResourceStore struct {
	root    string
	content *gocache.Cache
	log     logger.Logger
}

// NewResourceStore creates a store rooted at dataRoot. Content bytes are
// cached for contentTTL keyed by "{path}:{etag}", so a metadata change
// naturally misses the stale entry.
func NewResourceStore(dataRoot string, contentTTL time.Duration, log logger.Logger) (*ResourceStore, error) {
	root, err := filepath.Abs(dataRoot)
	if err != nil {
		return nil, errors.ErrInternal("data root resolution failed").WithCause(err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errors.ErrInternal("data root is not a directory").
			WithMetadata("data_root", root)
	}
	if contentTTL <= 0 {
		contentTTL = constants.DefaultContentTTL
	}

	return &ResourceStore{
		root:    root,
		content: gocache.New(contentTTL, 2*contentTTL),
		log:     log.WithComponent("fs-store"),
	}, nil
}

var _ repository.ResourceRepository = (*ResourceStore)(nil)

// Root returns the absolute data root.
func (s *ResourceStore) Root() string {
	return s.root
}

// FindByPath implements repository.ResourceRepository.
func (s *ResourceStore) FindByPath(ctx context.Context, path models.DataPath) (models.ResourceMetadata, error) {
	full, err := s.resolve(path)
	if err != nil {
		return models.ResourceMetadata{}, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return models.ResourceMetadata{}, errors.ErrResourceNotFound(path.Normalized())
		}
		return models.ResourceMetadata{}, errors.ErrStoreUnavailable("stat failed").WithCause(err)
	}
	if info.IsDir() {
		return models.ResourceMetadata{}, errors.ErrResourceNotFound(path.Normalized())
	}

	return models.NewResourceMetadata(info.Size(), info.ModTime().UTC(), "", constants.DefaultContentType), nil
}

// GetContent implements repository.ResourceRepository.
func (s *ResourceStore) GetContent(ctx context.Context, resource *models.OpenDataResource) ([]byte, error) {
	key := resource.CacheKey()
	if cached, ok := s.content.Get(key); ok {
		return cached.([]byte), nil
	}

	full, err := s.resolve(resource.Path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrResourceNotFound(resource.Path.Normalized())
		}
		return nil, errors.ErrStoreUnavailable("content read failed").WithCause(err)
	}

	s.content.SetDefault(key, data)
	return data, nil
}

// InvalidateContent drops every cached content entry for a path. Called by
// the watcher when the underlying file changes.
func (s *ResourceStore) InvalidateContent(path string) {
	prefix := path + ":"
	for key := range s.content.Items() {
		if strings.HasPrefix(key, prefix) {
			s.content.Delete(key)
		}
	}
}

// resolve joins a validated path onto the data root and re-checks that the
// result still resolves under the root. The DataPath invariants should make
// escape impossible; this check holds even if a second base path is ever
// introduced upstream.
func (s *ResourceStore) resolve(path models.DataPath) (string, error) {
	full := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(path.Normalized())))
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", errors.ErrInvalidPathCharacters("path escapes data root").
			WithMetadata("path", path.Normalized())
	}
	return full, nil
}
