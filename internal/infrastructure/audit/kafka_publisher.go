// Package audit implements the audit sink publishers. Delivery is
// fire-and-forget: a publish failure is logged and never surfaced to the
// primary operation.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/internal/domain/service"
	"github.com/opendgw/odg/pkg/logger"
)

// KafkaPublisher delivers audit events to a Kafka topic.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    logger.Logger
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
// The writer runs in async mode: Publish enqueues and returns, and delivery
// errors surface through the error logger only.
func NewKafkaPublisher(brokers []string, topic string, log logger.Logger) *KafkaPublisher {
	componentLog := log.WithComponent("audit-kafka")
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		Async:        true,
		BatchTimeout: 100 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				componentLog.Warn(context.Background(), "audit delivery failed",
					logger.Int("messages", len(messages)),
					logger.Err(err),
				)
			}
		},
	}
	return &KafkaPublisher{writer: writer, log: componentLog}
}

var _ service.AuditPublisher = (*KafkaPublisher)(nil)

// Publish implements service.AuditPublisher.
func (p *KafkaPublisher) Publish(ctx context.Context, event *models.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Warn(ctx, "audit event marshal failed", logger.Err(err))
		return nil
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Time:  event.Timestamp,
	})
	if err != nil {
		// Observability must not break the data path.
		p.log.Warn(ctx, "audit publish failed",
			logger.String("event_type", string(event.Type)),
			logger.Err(err),
		)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
