// Package repository defines the narrow store contracts the gateway core
// depends on. Implementations live under internal/infrastructure.
package repository

import (
	"context"
	"time"

	"github.com/opendgw/odg/internal/domain/models"
)

// RateLimitRepository is the counter store behind the sliding-window limiter.
// It is assumed to give read-your-writes consistency for a single user's own
// counter; no stronger guarantee is required.
type RateLimitRepository interface {
	// Save appends one admission record.
	Save(ctx context.Context, record *models.RateLimitRecord) error

	// CountInWindow counts a user's records with start <= timestamp <= end.
	CountInWindow(ctx context.Context, userID string, start, end time.Time) (int64, error)

	// OldestInWindow returns the earliest record timestamp in the window,
	// or ok=false when the window is empty.
	OldestInWindow(ctx context.Context, userID string, start, end time.Time) (time.Time, bool, error)

	// DeleteByUser removes all of a user's records. Idempotent.
	DeleteByUser(ctx context.Context, userID string) (int64, error)

	// DeleteOlderThan removes records older than the cutoff, returning the
	// number removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
