package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// resourceNamespace is the UUIDv5 namespace for resource identifiers.
// IDs are a pure function of the data path: same path, same ID.
var resourceNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// ResourceMetadata describes a stored resource without its content.
// Instances are immutable; updates produce a new value.
type ResourceMetadata struct {
	Size         int64
	LastModified time.Time
	ETag         string
	ContentType  string
}

// NewResourceMetadata builds metadata, deriving the ETag from size and
// modification time when the backing store supplies none. The derivation is
// deterministic so repeated reads of an unchanged resource yield a stable tag
// without hashing content.
func NewResourceMetadata(size int64, lastModified time.Time, etag, contentType string) ResourceMetadata {
	if etag == "" {
		etag = DeriveETag(size, lastModified)
	}
	return ResourceMetadata{
		Size:         size,
		LastModified: lastModified,
		ETag:         etag,
		ContentType:  contentType,
	}
}

// DeriveETag computes the deterministic ETag for a (size, mtime) pair.
// The value is quoted per RFC 9110.
func DeriveETag(size int64, lastModified time.Time) string {
	return fmt.Sprintf(`"%x-%x"`, size, lastModified.UnixMilli())
}

// ETagWithoutQuotes returns the ETag with surrounding quotes stripped, the
// form used in cache keys.
func (m ResourceMetadata) ETagWithoutQuotes() string {
	return strings.Trim(m.ETag, `"`)
}

// MatchesETag reports whether a client-supplied tag equals the stored tag
// exactly.
func (m ResourceMetadata) MatchesETag(etag string) bool {
	return etag != "" && etag == m.ETag
}

// IsModifiedSince reports whether the resource changed strictly after t.
// Equal timestamps mean "not modified".
func (m ResourceMetadata) IsModifiedSince(t time.Time) bool {
	return m.LastModified.After(t)
}

// OpenDataResource is a cached resource entity. Identity is the deterministic
// ID derived from the path; AccessedAt is the sole recency signal for
// eviction.
type OpenDataResource struct {
	ID         uuid.UUID
	Path       DataPath
	Metadata   ResourceMetadata
	CreatedAt  time.Time
	AccessedAt time.Time
}

// NewOpenDataResource builds a resource entity for a validated path.
func NewOpenDataResource(path DataPath, metadata ResourceMetadata, now time.Time) *OpenDataResource {
	return &OpenDataResource{
		ID:         ResourceID(path),
		Path:       path,
		Metadata:   metadata,
		CreatedAt:  now,
		AccessedAt: now,
	}
}

// ResourceID derives the deterministic identifier for a path.
func ResourceID(path DataPath) uuid.UUID {
	return uuid.NewSHA1(resourceNamespace, []byte(path.Normalized()))
}

// RecordAccess updates the recency signal.
func (r *OpenDataResource) RecordAccess(now time.Time) {
	r.AccessedAt = now
}

// WithMetadata returns the resource with replaced metadata, preserving
// identity and timestamps.
func (r *OpenDataResource) WithMetadata(metadata ResourceMetadata) *OpenDataResource {
	r.Metadata = metadata
	return r
}

// Equal reports identity equality.
func (r *OpenDataResource) Equal(other *OpenDataResource) bool {
	return other != nil && r.ID == other.ID
}

// CacheKey is the content-cache key for the resource:
// "{path}:{etag-without-quotes}".
func (r *OpenDataResource) CacheKey() string {
	return fmt.Sprintf("%s:%s", r.Path.Normalized(), r.Metadata.ETagWithoutQuotes())
}
