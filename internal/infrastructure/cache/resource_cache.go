// Package cache implements the bounded in-memory resource cache: metadata
// keyed by deterministic resource id, with path uniqueness and
// oldest-AccessedAt eviction at capacity.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/pkg/constants"
	"github.com/opendgw/odg/pkg/errors"
	"github.com/opendgw/odg/pkg/logger"
)

// ResourceCache is the bounded OpenDataResource aggregate. All mutations are
// serialized through one mutex; lookups take the read lock.
type ResourceCache struct {
	mu            sync.RWMutex
	byID          map[uuid.UUID]*models.OpenDataResource
	byPath        map[string]uuid.UUID
	capacity      int
	cacheDuration time.Duration
	log           logger.Logger
}

// AccessResult is the outcome of recording a data access.
type AccessResult struct {
	Resource *models.OpenDataResource
	CacheHit bool
	CacheKey string
}

// ConditionalResult is the outcome of evaluating a conditional request.
type ConditionalResult struct {
	// ShouldSendResource is false when the client's cached copy is current.
	ShouldSendResource bool
	ETag               string
	LastModified       time.Time
}

// Stats is a point-in-time cache summary.
type Stats struct {
	Size     int `json:"size"`
	Capacity int `json:"capacity"`
}

// NewResourceCache creates a cache bounded at capacity, using cacheDuration
// as the freshness horizon for hit accounting.
func NewResourceCache(capacity int, cacheDuration time.Duration, log logger.Logger) *ResourceCache {
	if capacity <= 0 {
		capacity = constants.DefaultMaxCachedResources
	}
	if cacheDuration <= 0 {
		cacheDuration = constants.DefaultCacheDuration
	}
	return &ResourceCache{
		byID:          make(map[uuid.UUID]*models.OpenDataResource),
		byPath:        make(map[string]uuid.UUID),
		capacity:      capacity,
		cacheDuration: cacheDuration,
		log:           log.WithComponent("resource-cache"),
	}
}

// Add inserts a resource, rejecting duplicate ids and duplicate paths. At
// capacity it first evicts the entry with the oldest AccessedAt, so the size
// invariant (size <= capacity) holds before and after every insert.
func (c *ResourceCache) Add(resource *models.OpenDataResource) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byID[resource.ID]; exists {
		return errors.ErrInternal("duplicate resource id").
			WithMetadata("id", resource.ID.String())
	}
	if _, exists := c.byPath[resource.Path.Normalized()]; exists {
		return errors.ErrInternal("duplicate resource path").
			WithMetadata("path", resource.Path.Normalized())
	}

	if len(c.byID) >= c.capacity {
		c.evictOldestLocked()
	}

	c.byID[resource.ID] = resource
	c.byPath[resource.Path.Normalized()] = resource.ID
	return nil
}

// Get returns a resource by id.
func (c *ResourceCache) Get(id uuid.UUID) (*models.OpenDataResource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	resource, ok := c.byID[id]
	if !ok {
		return nil, errors.ErrResourceNotFound(id.String())
	}
	return resource, nil
}

// FindByPath returns a resource by its normalized path.
func (c *ResourceCache) FindByPath(path string) (*models.OpenDataResource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.byPath[path]
	if !ok {
		return nil, errors.ErrResourceNotFound(path)
	}
	return c.byID[id], nil
}

// ProcessDataAccess records an access against the resource at path, mutating
// its recency signal, and reports whether the read counts as a cache hit:
// the resource was modified within the freshness horizon.
func (c *ResourceCache) ProcessDataAccess(userID, path string, now time.Time) (*AccessResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.byPath[path]
	if !ok {
		return nil, errors.ErrResourceNotFound(path)
	}
	resource := c.byID[id]
	resource.RecordAccess(now)

	cacheHit := now.Sub(resource.Metadata.LastModified) < c.cacheDuration
	return &AccessResult{
		Resource: resource,
		CacheHit: cacheHit,
		CacheKey: fmt.Sprintf("%s:%s", path, resource.Metadata.ETagWithoutQuotes()),
	}, nil
}

// ProcessConditionalRequest evaluates a conditional read against the stored
// metadata. An exact ETag match wins; otherwise an If-Modified-Since
// timestamp at or after the stored LastModified (strict comparison) means
// "not modified".
func (c *ResourceCache) ProcessConditionalRequest(path, etag string, ifModifiedSince *time.Time) (*ConditionalResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.byPath[path]
	if !ok {
		return nil, errors.ErrResourceNotFound(path)
	}
	meta := c.byID[id].Metadata

	result := &ConditionalResult{
		ShouldSendResource: true,
		ETag:               meta.ETag,
		LastModified:       meta.LastModified,
	}

	if meta.MatchesETag(etag) {
		result.ShouldSendResource = false
		return result, nil
	}
	if ifModifiedSince != nil && !meta.IsModifiedSince(*ifModifiedSince) {
		result.ShouldSendResource = false
	}
	return result, nil
}

// UpdateMetadata replaces a resource's metadata, preserving identity.
func (c *ResourceCache) UpdateMetadata(id uuid.UUID, metadata models.ResourceMetadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	resource, ok := c.byID[id]
	if !ok {
		return errors.ErrResourceNotFound(id.String())
	}
	resource.WithMetadata(metadata)
	return nil
}

// RemoveByPath drops a cache entry. Used by the filesystem watcher so the
// next read re-derives metadata. Removing an absent path is a no-op.
func (c *ResourceCache) RemoveByPath(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.byPath[path]
	if !ok {
		return false
	}
	delete(c.byID, id)
	delete(c.byPath, path)
	return true
}

// Cleanup evicts every entry whose AccessedAt is older than now-retention,
// returning the removed count.
func (c *ResourceCache) Cleanup(retention time.Duration, now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := now.Add(-retention)
	removed := 0
	for id, resource := range c.byID {
		if resource.AccessedAt.Before(cutoff) {
			delete(c.byID, id)
			delete(c.byPath, resource.Path.Normalized())
			removed++
		}
	}
	return removed
}

// Len returns the current entry count.
func (c *ResourceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// Stats returns a point-in-time summary.
func (c *ResourceCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Size: len(c.byID), Capacity: c.capacity}
}

// evictOldestLocked removes the entry with the oldest AccessedAt. Caller
// holds the write lock.
func (c *ResourceCache) evictOldestLocked() {
	var oldest *models.OpenDataResource
	for _, resource := range c.byID {
		if oldest == nil || resource.AccessedAt.Before(oldest.AccessedAt) {
			oldest = resource
		}
	}
	if oldest == nil {
		return
	}
	delete(c.byID, oldest.ID)
	delete(c.byPath, oldest.Path.Normalized())
	c.log.Debug(context.Background(), "evicted least recently accessed resource",
		logger.String("path", oldest.Path.Normalized()),
	)
}
