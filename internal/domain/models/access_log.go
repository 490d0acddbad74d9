package models

import (
	"time"

	"github.com/google/uuid"
)

// RateLimitRecord is one admitted request counted against a user's quota.
// Records are append-only: created on each admission, removed only by the
// retention sweep or an administrative reset. A record represents attempted
// work and counts against quota even when the caller later abandons the
// request.
type RateLimitRecord struct {
	ID        uuid.UUID
	UserID    string
	Endpoint  string
	Timestamp time.Time
}

// NewRateLimitRecord creates a record for an admission at the given instant.
func NewRateLimitRecord(userID, endpoint string, at time.Time) *RateLimitRecord {
	return &RateLimitRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Endpoint:  endpoint,
		Timestamp: at,
	}
}

// AccessLogRecord is the unconditional per-request access log entry written
// by the decision engine: status 200 when admitted, 429 when the quota
// denied.
type AccessLogRecord struct {
	ID        uuid.UUID
	UserID    string
	Endpoint  string
	Method    string
	Status    int
	Timestamp time.Time
}

// NewAccessLogRecord creates an access log entry.
func NewAccessLogRecord(userID, endpoint, method string, status int, at time.Time) *AccessLogRecord {
	return &AccessLogRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Endpoint:  endpoint,
		Method:    method,
		Status:    status,
		Timestamp: at,
	}
}
