package audit

import (
	"context"

	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/internal/domain/service"
	"github.com/opendgw/odg/pkg/logger"
)

// LogPublisher writes audit events to the structured log. It is the default
// sink for development and single-node deployments.
type LogPublisher struct {
	log logger.Logger
}

// NewLogPublisher creates the logger-backed publisher.
func NewLogPublisher(log logger.Logger) *LogPublisher {
	return &LogPublisher{log: log.WithComponent("audit")}
}

var _ service.AuditPublisher = (*LogPublisher)(nil)

// Publish implements service.AuditPublisher.
func (p *LogPublisher) Publish(ctx context.Context, event *models.AuditEvent) error {
	fields := []logger.Field{
		logger.String("event_id", event.EventID.String()),
		logger.String("event_type", string(event.Type)),
		logger.String("user_id", event.UserID),
		logger.String("resource", event.Resource),
		logger.String("outcome", event.Outcome),
		logger.Time("event_timestamp", event.Timestamp),
	}
	for key, value := range event.Metadata {
		fields = append(fields, logger.Any(key, value))
	}
	p.log.Info(ctx, "audit event", fields...)
	return nil
}

// Close implements service.AuditPublisher.
func (p *LogPublisher) Close() error {
	return nil
}
