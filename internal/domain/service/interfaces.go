// Package service defines the domain service contracts orchestrated by the
// application layer.
package service

import (
	"context"
	"time"

	"github.com/opendgw/odg/internal/domain/models"
)

// RateLimitService enforces per-tier sliding-window quotas.
type RateLimitService interface {
	// CheckAndRecordAccess counts the user's admissions in the trailing
	// window and, when under quota, records a new admission. The check and
	// the record are two store operations with no cross-request lock:
	// concurrent requests may overshoot the quota by up to N-1.
	CheckAndRecordAccess(ctx context.Context, user models.AuthenticatedUser, endpoint, method string) (*models.RateLimitResult, error)

	// GetUserUsageStatus returns the user's current window consumption.
	GetUserUsageStatus(ctx context.Context, user models.AuthenticatedUser) (*models.UsageStatus, error)

	// ResetUserLimit purges all of a user's admission records. Idempotent.
	ResetUserLimit(ctx context.Context, userID string) error

	// Sweep removes records older than the retention horizon, returning the
	// number removed.
	Sweep(ctx context.Context, retention time.Duration) (int64, error)
}

// AuthorizationService is the external authorization check consulted by the
// decision engine. An error is treated as a denial by the caller.
type AuthorizationService interface {
	Authorize(ctx context.Context, user models.AuthenticatedUser, endpoint models.EndpointDescriptor) (bool, error)
}

// AuditPublisher delivers audit events to the external sink. Publishing is
// fire-and-forget from the caller's perspective: failures are logged by the
// implementation and must never fail the primary operation.
type AuditPublisher interface {
	Publish(ctx context.Context, event *models.AuditEvent) error
	Close() error
}
