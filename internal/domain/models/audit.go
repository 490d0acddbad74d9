package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/opendgw/odg/pkg/constants"
)

// AuditEvent is a single immutable audit trail record. Delivery to the sink
// is fire-and-forget; a publish failure never fails the primary operation.
type AuditEvent struct {
	EventID   uuid.UUID
	Type      constants.AuditEventType
	UserID    string
	Resource  string // resource path or endpoint the event concerns
	Outcome   string
	Timestamp time.Time
	Metadata  map[string]interface{}
}

// NewAuditEvent creates an audit event stamped with the current time.
func NewAuditEvent(eventType constants.AuditEventType, outcome string) *AuditEvent {
	return &AuditEvent{
		EventID:   uuid.New(),
		Type:      eventType,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
	}
}

// WithUser sets the acting user.
func (e *AuditEvent) WithUser(userID string) *AuditEvent {
	e.UserID = userID
	return e
}

// WithResource sets the resource path or endpoint the event concerns.
func (e *AuditEvent) WithResource(resource string) *AuditEvent {
	e.Resource = resource
	return e
}

// WithMetadata attaches event-specific data.
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}
