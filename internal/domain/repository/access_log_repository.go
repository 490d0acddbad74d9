package repository

import (
	"context"
	"time"

	"github.com/opendgw/odg/internal/domain/models"
)

// AccessLogRepository persists the unconditional per-request access log.
type AccessLogRepository interface {
	// Save appends one access log record.
	Save(ctx context.Context, record *models.AccessLogRecord) error

	// DeleteOlderThan removes entries older than the cutoff, returning the
	// number removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
