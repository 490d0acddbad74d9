// Package constants defines shared enumerations and default values for the
// Open Data Gateway: user tiers, endpoint classification, decision reasons,
// audit event names, and validation limits.
package constants

import "time"

// ================================================================================
// Service Identity
// ================================================================================

const (
	// ServiceName is the canonical service name used in logs, traces and metrics.
	ServiceName = "odg-gateway"
)

// ================================================================================
// User Tiers
// ================================================================================

// TierLevel identifies a user tier carrying a distinct request quota.
type TierLevel string

const (
	TierLevel1 TierLevel = "TIER1"
	TierLevel2 TierLevel = "TIER2"
	TierLevel3 TierLevel = "TIER3"
)

// Default per-tier quotas, all over a trailing 60 second window.
const (
	DefaultWindowSeconds = 60

	DefaultTier1MaxRequests = 60
	DefaultTier2MaxRequests = 120
	DefaultTier3MaxRequests = 300
)

// ================================================================================
// Endpoint Classification
// ================================================================================

// EndpointType gates whether authorization and quota checks apply to a request.
type EndpointType string

const (
	// EndpointTypePublic marks endpoints that bypass authorization and quota.
	EndpointTypePublic EndpointType = "PUBLIC"
	// EndpointTypeProtected marks endpoints subject to the full decision pipeline.
	EndpointTypeProtected EndpointType = "PROTECTED"
)

// PublicEndpointPrefixes is the fixed allowlist of path prefixes classified as
// PUBLIC. Everything else is PROTECTED.
var PublicEndpointPrefixes = []string{
	"/health",
	"/docs",
	"/metrics",
}

// ================================================================================
// Access Decision Reasons
// ================================================================================

// DecisionReason is the terminal branch an access decision was produced by.
type DecisionReason string

const (
	ReasonAuthenticated     DecisionReason = "authenticated"
	ReasonUnauthorized      DecisionReason = "unauthorized"
	ReasonRateLimitExceeded DecisionReason = "rate_limit_exceeded"
	ReasonEndpointNotFound  DecisionReason = "endpoint_not_found"
)

// ================================================================================
// Error Codes
// ================================================================================

// ErrorCode is a stable, machine-readable error code surfaced to callers.
type ErrorCode string

const (
	ErrCodeInvalidPath           ErrorCode = "INVALID_PATH"
	ErrCodeInvalidPathFormat     ErrorCode = "INVALID_PATH_FORMAT"
	ErrCodePathTooLong           ErrorCode = "PATH_TOO_LONG"
	ErrCodeInvalidPathCharacters ErrorCode = "INVALID_PATH_CHARACTERS"
	ErrCodePathSegmentTooLong    ErrorCode = "PATH_SEGMENT_TOO_LONG"
	ErrCodeResourceNotFound      ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeAccessDenied          ErrorCode = "ACCESS_DENIED"
	ErrCodeInvalidUserID         ErrorCode = "INVALID_USER_ID"
	ErrCodeStoreUnavailable      ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeInternal              ErrorCode = "INTERNAL"
)

// ================================================================================
// Audit Events
// ================================================================================

// AuditEventType names a signal emitted to the audit sink.
type AuditEventType string

const (
	AuditEventAccessRequested   AuditEventType = "access.requested"
	AuditEventAccessDenied      AuditEventType = "access.denied"
	AuditEventRateLimitExceeded AuditEventType = "access.rate_limit_exceeded"
	AuditEventResourceNotFound  AuditEventType = "resource.not_found"
	AuditEventResourceRetrieved AuditEventType = "resource.retrieved"
)

// Audit event outcomes.
const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeFailure = "failure"
)

// ================================================================================
// Rate Limiter
// ================================================================================

// FailurePolicy selects the limiter's behavior when the counter store fails.
type FailurePolicy string

const (
	// FailClosed surfaces a store failure as an internal error.
	FailClosed FailurePolicy = "fail_closed"
	// FailOpen admits the request when the counter store is unreachable.
	FailOpen FailurePolicy = "fail_open"
)

const (
	// DefaultStoreTimeout bounds every counter-store call. A timed-out check
	// is a hard failure, never an implicit verdict.
	DefaultStoreTimeout = 2 * time.Second

	// DefaultRetention is how long rate-limit records are kept before the
	// retention sweep removes them.
	DefaultRetention = 24 * time.Hour

	// DefaultSweepInterval is how often the retention sweep runs.
	DefaultSweepInterval = 10 * time.Minute
)

// ================================================================================
// Path Validation
// ================================================================================

const (
	// MaxPathLength is the maximum accepted length of a raw data path.
	MaxPathLength = 1024
	// MaxSegmentLength is the maximum accepted length of a single path segment.
	MaxSegmentLength = 255
	// DataPathExtension is the only extension served by the gateway.
	DataPathExtension = ".json"
)

// ================================================================================
// Resource Cache
// ================================================================================

const (
	// DefaultMaxCachedResources bounds the in-memory resource cache.
	DefaultMaxCachedResources = 1000
	// DefaultCacheDuration is the freshness horizon used for cache-hit
	// accounting: a resource modified within this duration counts as hot.
	DefaultCacheDuration = time.Hour
	// DefaultContentTTL bounds how long raw content bytes stay cached.
	DefaultContentTTL = 5 * time.Minute
)

// DefaultContentType is the content type of every served resource.
const DefaultContentType = "application/json"

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is the type for request-scoped context values.
type ContextKey string

const (
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyUserID    ContextKey = "user_id"
	ContextKeyTraceID   ContextKey = "trace_id"
)

// GinKeyUser is the gin context key the identity middleware stores the
// authenticated user under.
const GinKeyUser = "odg_user"
