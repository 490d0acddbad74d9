package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/internal/domain/repository"
	domainservice "github.com/opendgw/odg/internal/domain/service"
	"github.com/opendgw/odg/internal/infrastructure/cache"
	"github.com/opendgw/odg/internal/infrastructure/monitoring"
	"github.com/opendgw/odg/pkg/constants"
	"github.com/opendgw/odg/pkg/errors"
	"github.com/opendgw/odg/pkg/logger"
)

// DataRetrievalService is the single entry point to the resource tier. Every
// read funnels through the same pipeline: validate the path, resolve the
// resource through the bounded cache (hydrating from the backing store on a
// miss), honor conditional headers, then load content and record the access.
type DataRetrievalService struct {
	resources repository.ResourceRepository
	cache     *cache.ResourceCache
	audit     domainservice.AuditPublisher
	metrics   *monitoring.Metrics
	log       logger.Logger
	now       func() time.Time
}

// RetrievalResult carries one resource read back to the transport layer.
type RetrievalResult struct {
	Content      []byte
	Checksum     string
	ContentType  string
	ETag         string
	LastModified time.Time
	Size         int64
	CacheHit     bool
	// NotModified is set when a conditional precondition held and Content
	// was deliberately not loaded.
	NotModified bool
}

// NewDataRetrievalService wires the retrieval gateway.
func NewDataRetrievalService(
	resources repository.ResourceRepository,
	resourceCache *cache.ResourceCache,
	audit domainservice.AuditPublisher,
	metrics *monitoring.Metrics,
	log logger.Logger,
) *DataRetrievalService {
	return &DataRetrievalService{
		resources: resources,
		cache:     resourceCache,
		audit:     audit,
		metrics:   metrics,
		log:       log.WithComponent("data-retrieval"),
		now:       time.Now,
	}
}

// RetrieveData loads a resource's content for an unconditional read.
func (s *DataRetrievalService) RetrieveData(ctx context.Context, userID, rawPath string) (*RetrievalResult, error) {
	return s.retrieve(ctx, userID, rawPath, "", nil)
}

// RetrieveDataWithETag loads content unless the client's ETag is current, in
// which case NotModified is set and Content stays nil.
func (s *DataRetrievalService) RetrieveDataWithETag(ctx context.Context, userID, rawPath, etag string) (*RetrievalResult, error) {
	return s.retrieve(ctx, userID, rawPath, etag, nil)
}

// RetrieveDataIfModified loads content only when the resource changed after
// the client's timestamp.
func (s *DataRetrievalService) RetrieveDataIfModified(ctx context.Context, userID, rawPath string, since time.Time) (*RetrievalResult, error) {
	return s.retrieve(ctx, userID, rawPath, "", &since)
}

// RetrieveMetadata resolves a resource's validators without touching content.
// A metadata read still counts as an access: it refreshes the recency signal
// and leaves the same audit trail as a body read, minus the content I/O.
func (s *DataRetrievalService) RetrieveMetadata(ctx context.Context, userID, rawPath string) (models.ResourceMetadata, error) {
	started := s.now()

	resource, path, err := s.resolve(ctx, userID, rawPath)
	if err != nil {
		return models.ResourceMetadata{}, err
	}

	access, err := s.cache.ProcessDataAccess(userID, path.Normalized(), s.now())
	if err != nil {
		return models.ResourceMetadata{}, err
	}

	elapsed := s.now().Sub(started)
	s.publish(ctx, models.NewAuditEvent(constants.AuditEventResourceRetrieved, constants.AuditOutcomeSuccess).
		WithUser(userID).
		WithResource(path.Normalized()).
		WithMetadata("resourceSize", resource.Metadata.Size).
		WithMetadata("contentType", resource.Metadata.ContentType).
		WithMetadata("cacheHit", access.CacheHit).
		WithMetadata("responseTimeMs", elapsed.Milliseconds()))
	if s.metrics != nil {
		s.metrics.RecordRetrieval("metadata", elapsed)
	}
	return resource.Metadata, nil
}

// RefreshMetadata re-stats a changed file and replaces the cached entry's
// metadata in place, preserving identity and recency. The filesystem watcher
// calls this for write events; a path that is not cached is left alone and
// hydrates fresh on its next read.
func (s *DataRetrievalService) RefreshMetadata(ctx context.Context, rawPath string) {
	path, err := models.NewDataPath(rawPath)
	if err != nil {
		return
	}
	resource, err := s.cache.FindByPath(path.Normalized())
	if err != nil {
		return
	}

	metadata, err := s.resources.FindByPath(ctx, path)
	if err != nil {
		// The file vanished between the event and the stat.
		s.cache.RemoveByPath(path.Normalized())
		return
	}
	if err := s.cache.UpdateMetadata(resource.ID, metadata); err != nil {
		s.log.Warn(ctx, "metadata refresh failed",
			logger.String("path", path.Normalized()), logger.Err(err))
		return
	}
	if s.metrics != nil {
		s.metrics.RecordCacheEvent("refresh")
	}
}

// Invalidate drops the cached entry for a path, forcing the next read to
// re-hydrate from the backing store. Used by the filesystem watcher.
func (s *DataRetrievalService) Invalidate(rawPath string) {
	path, err := models.NewDataPath(rawPath)
	if err != nil {
		return
	}
	if s.cache.RemoveByPath(path.Normalized()) {
		if s.metrics != nil {
			s.metrics.RecordCacheEvent("invalidate")
		}
	}
}

// CacheStats exposes cache occupancy for the admin surface.
func (s *DataRetrievalService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func (s *DataRetrievalService) retrieve(ctx context.Context, userID, rawPath, etag string, ifModifiedSince *time.Time) (*RetrievalResult, error) {
	started := s.now()

	resource, path, err := s.resolve(ctx, userID, rawPath)
	if err != nil {
		return nil, err
	}

	// Conditional preconditions short-circuit before any content I/O.
	if etag != "" || ifModifiedSince != nil {
		conditional, err := s.cache.ProcessConditionalRequest(path.Normalized(), etag, ifModifiedSince)
		if err != nil {
			return nil, err
		}
		if !conditional.ShouldSendResource {
			if s.metrics != nil {
				s.metrics.RecordRetrieval("conditional", s.now().Sub(started))
				s.metrics.RecordCacheEvent("not_modified")
			}
			return &RetrievalResult{
				NotModified:  true,
				ETag:         conditional.ETag,
				LastModified: conditional.LastModified,
				ContentType:  resource.Metadata.ContentType,
				Size:         resource.Metadata.Size,
			}, nil
		}
	}

	content, err := s.resources.GetContent(ctx, resource)
	if err != nil {
		s.log.Error(ctx, "content read failed", err,
			logger.String("path", path.Normalized()),
		)
		return nil, err
	}

	access, err := s.cache.ProcessDataAccess(userID, path.Normalized(), s.now())
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(content)
	elapsed := s.now().Sub(started)
	result := &RetrievalResult{
		Content:      content,
		Checksum:     hex.EncodeToString(sum[:]),
		ContentType:  resource.Metadata.ContentType,
		ETag:         resource.Metadata.ETag,
		LastModified: resource.Metadata.LastModified,
		Size:         resource.Metadata.Size,
		CacheHit:     access.CacheHit,
	}

	s.publish(ctx, models.NewAuditEvent(constants.AuditEventResourceRetrieved, constants.AuditOutcomeSuccess).
		WithUser(userID).
		WithResource(path.Normalized()).
		WithMetadata("resourceSize", resource.Metadata.Size).
		WithMetadata("contentType", resource.Metadata.ContentType).
		WithMetadata("cacheHit", access.CacheHit).
		WithMetadata("responseTimeMs", elapsed.Milliseconds()))
	if s.metrics != nil {
		s.metrics.RecordRetrieval("content", elapsed)
		if access.CacheHit {
			s.metrics.RecordCacheEvent("hit")
		} else {
			s.metrics.RecordCacheEvent("miss")
		}
	}
	return result, nil
}

// resolve validates the raw path and returns the cached resource, hydrating
// the cache from the backing store on a miss.
func (s *DataRetrievalService) resolve(ctx context.Context, userID, rawPath string) (*models.OpenDataResource, models.DataPath, error) {
	path, err := models.NewDataPath(rawPath)
	if err != nil {
		return nil, models.DataPath{}, err
	}

	resource, err := s.cache.FindByPath(path.Normalized())
	if err == nil {
		return resource, path, nil
	}
	if !errors.IsNotFound(err) {
		return nil, models.DataPath{}, err
	}

	metadata, err := s.resources.FindByPath(ctx, path)
	if err != nil {
		if errors.IsNotFound(err) {
			s.publish(ctx, models.NewAuditEvent(constants.AuditEventResourceNotFound, constants.AuditOutcomeFailure).
				WithUser(userID).
				WithResource(path.Normalized()))
		}
		return nil, models.DataPath{}, err
	}

	resource = models.NewOpenDataResource(path, metadata, s.now())
	if addErr := s.cache.Add(resource); addErr != nil {
		// A concurrent reader may have hydrated the same path first; serve
		// the cached entry rather than failing the read.
		if cached, findErr := s.cache.FindByPath(path.Normalized()); findErr == nil {
			return cached, path, nil
		}
		return nil, models.DataPath{}, addErr
	}
	if s.metrics != nil {
		s.metrics.RecordCacheEvent("fill")
	}
	return resource, path, nil
}

func (s *DataRetrievalService) publish(ctx context.Context, event *models.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Publish(ctx, event); err != nil {
		s.log.Warn(ctx, "audit publish failed",
			logger.String("event_type", string(event.Type)),
			logger.Err(err),
		)
	}
}
