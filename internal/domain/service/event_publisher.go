package service

import (
	"context"
	"time"
)

// Session security event types.
const (
	EventSessionsRevokedAll = "sessions.revoked_all"
	EventStatelessIssued    = "session.stateless_issued"
	EventArchivedBlocked    = "session.archived_blocked"
)

// SessionEvent is published for operator visibility into security relevant
// session changes. Delivery is best effort.
type SessionEvent struct {
	RequestID     string    `json:"request_id,omitempty"` // For distributed tracing
	Type          string    `json:"type"`
	PrincipalID   string    `json:"principal_id"`
	PrincipalType string    `json:"principal_type"`
	SessionID     string    `json:"session_id,omitempty"`
	Count         int64     `json:"count,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishSessionEvent publishes a session event
	PublishSessionEvent(ctx context.Context, event *SessionEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
