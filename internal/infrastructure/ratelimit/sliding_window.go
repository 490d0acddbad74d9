// Package ratelimit implements the store-backed sliding-window rate limiter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/internal/domain/repository"
	"github.com/opendgw/odg/internal/domain/service"
	"github.com/opendgw/odg/pkg/constants"
	"github.com/opendgw/odg/pkg/errors"
	"github.com/opendgw/odg/pkg/logger"
)

// SlidingWindowLimiter counts a user's admissions in the trailing tier window
// against the tier quota. The check and the record are two separate store
// operations with no cross-request lock; N concurrent requests from one user
// can overshoot the quota by up to N-1. That is an accepted consistency
// trade-off, not a defect.
type SlidingWindowLimiter struct {
	store   repository.RateLimitRepository
	policy  constants.FailurePolicy
	timeout time.Duration
	now     func() time.Time
	log     logger.Logger
}

// Option configures a SlidingWindowLimiter.
type Option func(*SlidingWindowLimiter)

// WithClock overrides the limiter's clock. Tests only.
func WithClock(now func() time.Time) Option {
	return func(l *SlidingWindowLimiter) { l.now = now }
}

// WithFailurePolicy sets the store-failure policy. The policy is applied
// uniformly: either every store failure surfaces as an internal error
// (fail-closed, the default) or every failure admits the request (fail-open).
func WithFailurePolicy(policy constants.FailurePolicy) Option {
	return func(l *SlidingWindowLimiter) { l.policy = policy }
}

// WithStoreTimeout bounds each store call.
func WithStoreTimeout(timeout time.Duration) Option {
	return func(l *SlidingWindowLimiter) { l.timeout = timeout }
}

// NewSlidingWindowLimiter creates a limiter over the given counter store.
func NewSlidingWindowLimiter(store repository.RateLimitRepository, log logger.Logger, opts ...Option) *SlidingWindowLimiter {
	l := &SlidingWindowLimiter{
		store:   store,
		policy:  constants.FailClosed,
		timeout: constants.DefaultStoreTimeout,
		now:     time.Now,
		log:     log.WithComponent("ratelimit"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ service.RateLimitService = (*SlidingWindowLimiter)(nil)

// CheckAndRecordAccess implements service.RateLimitService.
func (l *SlidingWindowLimiter) CheckAndRecordAccess(ctx context.Context, user models.AuthenticatedUser, endpoint, method string) (*models.RateLimitResult, error) {
	if user.UserID == "" {
		return nil, errors.ErrInvalidUserID("user id must not be empty")
	}

	now := l.now()
	window := user.Tier.Window()
	limit := user.Tier.MaxRequests
	start := now.Add(-window)

	count, err := l.countInWindow(ctx, user.UserID, start, now)
	if err != nil {
		return l.applyFailurePolicy(ctx, user, "count", limit, window, err)
	}

	if count >= int64(limit) {
		retryAfter := l.retryAfter(ctx, user.UserID, start, now, window)
		l.log.Debug(ctx, "quota exhausted",
			logger.String("user_id", user.UserID),
			logger.Int64("count", count),
			logger.Int("limit", limit),
		)
		return &models.RateLimitResult{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    now.Add(retryAfter),
			RetryAfter: retryAfter,
		}, nil
	}

	record := models.NewRateLimitRecord(user.UserID, endpoint, now)
	if err := l.save(ctx, record); err != nil {
		return l.applyFailurePolicy(ctx, user, "save", limit, window, err)
	}

	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(count) - 1,
		ResetAt:   now.Add(window),
	}, nil
}

// GetUserUsageStatus implements service.RateLimitService. WindowEnd is the
// reset boundary a request admitted now would get (now+window), not "now".
func (l *SlidingWindowLimiter) GetUserUsageStatus(ctx context.Context, user models.AuthenticatedUser) (*models.UsageStatus, error) {
	if user.UserID == "" {
		return nil, errors.ErrInvalidUserID("user id must not be empty")
	}

	now := l.now()
	window := user.Tier.Window()
	start := now.Add(-window)

	count, err := l.countInWindow(ctx, user.UserID, start, now)
	if err != nil {
		return nil, errors.ErrStoreUnavailable("usage lookup failed").WithCause(err)
	}

	return &models.UsageStatus{
		CurrentCount: int(count),
		Limit:        user.Tier.MaxRequests,
		WindowStart:  start,
		WindowEnd:    now.Add(window),
	}, nil
}

// ResetUserLimit implements service.RateLimitService.
func (l *SlidingWindowLimiter) ResetUserLimit(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.ErrInvalidUserID("user id must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	removed, err := l.store.DeleteByUser(ctx, userID)
	if err != nil {
		return errors.ErrStoreUnavailable("rate limit reset failed").WithCause(err)
	}

	l.log.Info(ctx, "rate limit reset",
		logger.String("user_id", userID),
		logger.Int64("removed", removed),
	)
	return nil
}

// Sweep implements service.RateLimitService.
func (l *SlidingWindowLimiter) Sweep(ctx context.Context, retention time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	cutoff := l.now().Add(-retention)
	removed, err := l.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, errors.ErrStoreUnavailable("retention sweep failed").WithCause(err)
	}

	if removed > 0 {
		l.log.Info(ctx, "retention sweep completed",
			logger.Int64("removed", removed),
			logger.Time("cutoff", cutoff),
		)
	}
	return removed, nil
}

func (l *SlidingWindowLimiter) countInWindow(ctx context.Context, userID string, start, end time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.store.CountInWindow(ctx, userID, start, end)
}

func (l *SlidingWindowLimiter) save(ctx context.Context, record *models.RateLimitRecord) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.store.Save(ctx, record)
}

// retryAfter derives the wait until the oldest in-window record falls out of
// the window. When the oldest record cannot be read, the full window is the
// safe upper bound.
func (l *SlidingWindowLimiter) retryAfter(ctx context.Context, userID string, start, now time.Time, window time.Duration) time.Duration {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	oldest, ok, err := l.store.OldestInWindow(ctx, userID, start, now)
	if err != nil || !ok {
		return window
	}
	retryAfter := oldest.Add(window).Sub(now)
	if retryAfter <= 0 {
		retryAfter = time.Second
	}
	return retryAfter
}

// applyFailurePolicy converts a store failure into the configured uniform
// behavior: fail-open admits with a conservative result, fail-closed surfaces
// an internal error. Never an implicit deny.
func (l *SlidingWindowLimiter) applyFailurePolicy(ctx context.Context, user models.AuthenticatedUser, op string, limit int, window time.Duration, err error) (*models.RateLimitResult, error) {
	if l.policy == constants.FailOpen {
		l.log.Warn(ctx, "counter store failure, admitting per fail-open policy",
			logger.String("user_id", user.UserID),
			logger.String("operation", op),
			logger.Err(err),
		)
		return &models.RateLimitResult{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - 1,
			ResetAt:   l.now().Add(window),
		}, nil
	}

	l.log.Error(ctx, "counter store failure", err,
		logger.String("user_id", user.UserID),
		logger.String("operation", op),
	)
	return nil, errors.ErrStoreUnavailable(fmt.Sprintf("rate limit %s failed", op)).WithCause(err)
}
