package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/pkg/constants"
	"github.com/opendgw/odg/pkg/errors"
	"github.com/opendgw/odg/pkg/logger"
)

// fakeLimiter scripts the quota verdict.
type fakeLimiter struct {
	result *models.RateLimitResult
	err    error
	calls  int
}

func (f *fakeLimiter) CheckAndRecordAccess(context.Context, models.AuthenticatedUser, string, string) (*models.RateLimitResult, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeLimiter) GetUserUsageStatus(context.Context, models.AuthenticatedUser) (*models.UsageStatus, error) {
	return nil, nil
}

func (f *fakeLimiter) ResetUserLimit(context.Context, string) error { return nil }

func (f *fakeLimiter) Sweep(context.Context, time.Duration) (int64, error) { return 0, nil }

// fakeAuthorizer scripts the authorization verdict.
type fakeAuthorizer struct {
	authorized bool
	err        error
	calls      int
}

func (f *fakeAuthorizer) Authorize(context.Context, models.AuthenticatedUser, models.EndpointDescriptor) (bool, error) {
	f.calls++
	return f.authorized, f.err
}

// fakeAccessLogs captures saved records.
type fakeAccessLogs struct {
	mu      sync.Mutex
	records []*models.AccessLogRecord
	err     error
}

func (f *fakeAccessLogs) Save(_ context.Context, record *models.AccessLogRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeAccessLogs) DeleteOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

func (f *fakeAccessLogs) saved() []*models.AccessLogRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.AccessLogRecord(nil), f.records...)
}

// fakeAudit captures published events.
type fakeAudit struct {
	mu     sync.Mutex
	events []*models.AuditEvent
}

func (f *fakeAudit) Publish(_ context.Context, event *models.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAudit) Close() error { return nil }

func (f *fakeAudit) types() []constants.AuditEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]constants.AuditEventType, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

func allowedResult(limit, remaining int) *models.RateLimitResult {
	return &models.RateLimitResult{Allowed: true, Limit: limit, Remaining: remaining}
}

func limitedResult(limit int, retryAfter time.Duration) *models.RateLimitResult {
	return &models.RateLimitResult{Allowed: false, Limit: limit, RetryAfter: retryAfter}
}

func testDecisionUser() models.AuthenticatedUser {
	return models.AuthenticatedUser{
		UserID: "user-1",
		Tier:   models.TierForLevel(constants.TierLevel1),
	}
}

func TestAccessDecisionService(t *testing.T) {
	log := logger.NewNoopLogger()
	ctx := context.Background()

	newService := func(limiter *fakeLimiter, authorizer *fakeAuthorizer, logs *fakeAccessLogs, audit *fakeAudit) *AccessDecisionService {
		return NewAccessDecisionService(limiter, authorizer, logs, audit, nil, log)
	}

	t.Run("admits an authorized request within quota", func(t *testing.T) {
		limiter := &fakeLimiter{result: allowedResult(60, 59)}
		logs := &fakeAccessLogs{}
		audit := &fakeAudit{}
		svc := newService(limiter, &fakeAuthorizer{authorized: true}, logs, audit)

		decision, err := svc.CheckAndRecordAccess(ctx, testDecisionUser(), "/api/v1/data/a.json", "GET", nil)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, constants.ReasonAuthenticated, decision.Reason)
		assert.Equal(t, 59, decision.RateLimitStatus.Remaining)

		records := logs.saved()
		require.Len(t, records, 1)
		assert.Equal(t, http.StatusOK, records[0].Status)
		assert.Equal(t, []constants.AuditEventType{constants.AuditEventAccessRequested}, audit.types())
	})

	t.Run("malformed endpoint short-circuits before authorization", func(t *testing.T) {
		limiter := &fakeLimiter{result: allowedResult(60, 59)}
		authorizer := &fakeAuthorizer{authorized: true}
		logs := &fakeAccessLogs{}
		svc := newService(limiter, authorizer, logs, &fakeAudit{})

		decision, err := svc.CheckAndRecordAccess(ctx, testDecisionUser(), "no-leading-slash", "GET", nil)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, constants.ReasonEndpointNotFound, decision.Reason)
		assert.Zero(t, authorizer.calls)
		assert.Zero(t, limiter.calls)
		assert.Empty(t, logs.saved())
	})

	t.Run("authorization denial short-circuits before quota", func(t *testing.T) {
		limiter := &fakeLimiter{result: allowedResult(60, 59)}
		audit := &fakeAudit{}
		svc := newService(limiter, &fakeAuthorizer{authorized: false}, &fakeAccessLogs{}, audit)

		decision, err := svc.CheckAndRecordAccess(ctx, testDecisionUser(), "/api/v1/data/a.json", "GET", nil)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, constants.ReasonUnauthorized, decision.Reason)
		assert.Zero(t, limiter.calls, "denied requests must not consume quota")
		assert.Equal(t, []constants.AuditEventType{constants.AuditEventAccessDenied}, audit.types())
	})

	t.Run("authorization error is treated as denial", func(t *testing.T) {
		svc := newService(
			&fakeLimiter{result: allowedResult(60, 59)},
			&fakeAuthorizer{err: errors.ErrInternal("authorizer down")},
			&fakeAccessLogs{}, &fakeAudit{})

		decision, err := svc.CheckAndRecordAccess(ctx, testDecisionUser(), "/api/v1/data/a.json", "GET", nil)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, constants.ReasonUnauthorized, decision.Reason)
	})

	t.Run("quota denial logs 429 and emits the rate-limit signal", func(t *testing.T) {
		logs := &fakeAccessLogs{}
		audit := &fakeAudit{}
		svc := newService(&fakeLimiter{result: limitedResult(60, 30*time.Second)}, &fakeAuthorizer{authorized: true}, logs, audit)

		decision, err := svc.CheckAndRecordAccess(ctx, testDecisionUser(), "/api/v1/data/a.json", "GET", nil)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, constants.ReasonRateLimitExceeded, decision.Reason)
		assert.Equal(t, 30*time.Second, decision.RateLimitStatus.RetryAfter)

		records := logs.saved()
		require.Len(t, records, 1)
		assert.Equal(t, http.StatusTooManyRequests, records[0].Status)
		assert.Equal(t,
			[]constants.AuditEventType{constants.AuditEventAccessRequested, constants.AuditEventRateLimitExceeded},
			audit.types())
	})

	t.Run("store failure propagates as an error, not a verdict", func(t *testing.T) {
		svc := newService(
			&fakeLimiter{err: errors.ErrStoreUnavailable("redis down")},
			&fakeAuthorizer{authorized: true},
			&fakeAccessLogs{}, &fakeAudit{})

		_, err := svc.CheckAndRecordAccess(ctx, testDecisionUser(), "/api/v1/data/a.json", "GET", nil)
		require.Error(t, err)
		assert.Equal(t, constants.ErrCodeStoreUnavailable, errors.CodeOf(err))
	})

	t.Run("access-log failure does not fail the decision", func(t *testing.T) {
		logs := &fakeAccessLogs{err: errors.ErrStoreUnavailable("db down")}
		svc := newService(&fakeLimiter{result: allowedResult(60, 59)}, &fakeAuthorizer{authorized: true}, logs, &fakeAudit{})

		decision, err := svc.CheckAndRecordAccess(ctx, testDecisionUser(), "/api/v1/data/a.json", "GET", nil)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("public access records only the log entry", func(t *testing.T) {
		limiter := &fakeLimiter{result: allowedResult(60, 59)}
		authorizer := &fakeAuthorizer{authorized: true}
		logs := &fakeAccessLogs{}
		audit := &fakeAudit{}
		svc := newService(limiter, authorizer, logs, audit)

		require.NoError(t, svc.RecordPublicAccess(ctx, "/health", "GET", nil))

		records := logs.saved()
		require.Len(t, records, 1)
		assert.Equal(t, "", records[0].UserID)
		assert.Equal(t, http.StatusOK, records[0].Status)
		assert.Zero(t, limiter.calls)
		assert.Zero(t, authorizer.calls)
		assert.Empty(t, audit.types())
	})
}
