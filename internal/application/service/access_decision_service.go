// Package service contains the application services orchestrating the
// domain: the access decision engine and the data retrieval gateway.
package service

import (
	"context"
	"net/http"
	"time"

	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/internal/domain/repository"
	domainservice "github.com/opendgw/odg/internal/domain/service"
	"github.com/opendgw/odg/internal/infrastructure/monitoring"
	"github.com/opendgw/odg/pkg/constants"
	"github.com/opendgw/odg/pkg/logger"
)

// AccessDecisionService combines endpoint classification, the external
// authorization check and the rate limiter into one pass/fail verdict,
// emitting an audit signal at each branch. A quota denial is a successful
// decision carrying Allowed=false, never an error; only store failures
// propagate.
type AccessDecisionService struct {
	limiter    domainservice.RateLimitService
	authorizer domainservice.AuthorizationService
	accessLogs repository.AccessLogRepository
	audit      domainservice.AuditPublisher
	metrics    *monitoring.Metrics
	log        logger.Logger
	now        func() time.Time
}

// NewAccessDecisionService wires the decision engine.
func NewAccessDecisionService(
	limiter domainservice.RateLimitService,
	authorizer domainservice.AuthorizationService,
	accessLogs repository.AccessLogRepository,
	audit domainservice.AuditPublisher,
	metrics *monitoring.Metrics,
	log logger.Logger,
) *AccessDecisionService {
	return &AccessDecisionService{
		limiter:    limiter,
		authorizer: authorizer,
		accessLogs: accessLogs,
		audit:      audit,
		metrics:    metrics,
		log:        log.WithComponent("access-decision"),
		now:        time.Now,
	}
}

// CheckAndRecordAccess produces the admission verdict for one request.
func (s *AccessDecisionService) CheckAndRecordAccess(ctx context.Context, user models.AuthenticatedUser, pathString, method string, metadata map[string]interface{}) (*models.AccessDecision, error) {
	// Step 1: parse and classify the endpoint.
	endpoint, ok := models.ParseEndpoint(pathString, method)
	if !ok {
		s.log.Warn(ctx, "malformed endpoint rejected",
			logger.String("user_id", user.UserID),
			logger.String("path", pathString),
		)
		s.publish(ctx, models.NewAuditEvent(constants.AuditEventAccessDenied, constants.AuditOutcomeFailure).
			WithUser(user.UserID).
			WithResource(pathString).
			WithMetadata("reason", string(constants.ReasonEndpointNotFound)))
		s.recordDecision(constants.ReasonEndpointNotFound)
		return models.DecisionDenied(constants.ReasonEndpointNotFound, "unknown endpoint"), nil
	}

	// Step 2 happened inside ParseEndpoint; step 3: authorize.
	authorized, err := s.authorizer.Authorize(ctx, user, endpoint)
	if err != nil || !authorized {
		if err != nil {
			s.log.Warn(ctx, "authorization check failed, treating as denial",
				logger.String("user_id", user.UserID), logger.Err(err))
		}
		s.publish(ctx, models.NewAuditEvent(constants.AuditEventAccessDenied, constants.AuditOutcomeFailure).
			WithUser(user.UserID).
			WithResource(endpoint.Path).
			WithMetadata("endpoint_type", string(endpoint.Type)))
		s.recordDecision(constants.ReasonUnauthorized)
		return models.DecisionDenied(constants.ReasonUnauthorized, "access denied"), nil
	}

	// Step 4: quota. A store failure here is a hard failure, not a verdict.
	status, err := s.limiter.CheckAndRecordAccess(ctx, user, endpoint.Path, endpoint.Method)
	if err != nil {
		return nil, err
	}

	// Step 5: unconditional access log + audit signal.
	logStatus := http.StatusOK
	if !status.Allowed {
		logStatus = http.StatusTooManyRequests
	}
	record := models.NewAccessLogRecord(user.UserID, endpoint.Path, endpoint.Method, logStatus, s.now())
	if err := s.accessLogs.Save(ctx, record); err != nil {
		s.log.Error(ctx, "access log write failed", err,
			logger.String("user_id", user.UserID),
			logger.String("endpoint", endpoint.Path),
		)
	}
	s.publish(ctx, models.NewAuditEvent(constants.AuditEventAccessRequested, constants.AuditOutcomeSuccess).
		WithUser(user.UserID).
		WithResource(endpoint.Path).
		WithMetadata("status", logStatus))
	s.mergeMetadata(record, metadata)

	// Step 6: quota denial.
	if !status.Allowed {
		s.publish(ctx, models.NewAuditEvent(constants.AuditEventRateLimitExceeded, constants.AuditOutcomeFailure).
			WithUser(user.UserID).
			WithResource(endpoint.Path).
			WithMetadata("limit", status.Limit).
			WithMetadata("retry_after_seconds", int(status.RetryAfter.Seconds())))
		s.recordDecision(constants.ReasonRateLimitExceeded)
		if s.metrics != nil {
			s.metrics.RecordRateLimitHit(user.Tier.Level)
		}
		return models.DecisionRateLimited(status, "rate limit exceeded, retry later"), nil
	}

	// Step 7: admitted.
	s.recordDecision(constants.ReasonAuthenticated)
	return models.DecisionAllowed(status), nil
}

// RecordPublicAccess writes only the access-log record for always-reachable
// endpoints, skipping classification, authorization and quota entirely.
func (s *AccessDecisionService) RecordPublicAccess(ctx context.Context, endpoint, method string, metadata map[string]interface{}) error {
	record := models.NewAccessLogRecord("", endpoint, method, http.StatusOK, s.now())
	if err := s.accessLogs.Save(ctx, record); err != nil {
		s.log.Error(ctx, "public access log write failed", err,
			logger.String("endpoint", endpoint),
		)
		return err
	}
	return nil
}

// publish delivers an audit event, swallowing failures: observability never
// breaks the data path.
func (s *AccessDecisionService) publish(ctx context.Context, event *models.AuditEvent) {
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

func (s *AccessDecisionService) recordDecision(reason constants.DecisionReason) {
	if s.metrics != nil {
		s.metrics.RecordDecision(reason)
	}
}

// mergeMetadata logs caller metadata alongside the record. The access log
// schema is fixed; free-form metadata goes to the structured log instead.
func (s *AccessDecisionService) mergeMetadata(record *models.AccessLogRecord, metadata map[string]interface{}) {
	if len(metadata) == 0 {
		return
	}
	fields := []logger.Field{
		logger.String("user_id", record.UserID),
		logger.String("endpoint", record.Endpoint),
		logger.Int("status", record.Status),
	}
	for key, value := range metadata {
		fields = append(fields, logger.Any(key, value))
	}
	s.log.Debug(context.Background(), "access recorded", fields...)
}
