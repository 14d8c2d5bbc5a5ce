// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"time"

	"referral/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for session persistence.
var (
	// ErrStoreUnavailable is returned when the session store cannot be reached,
	// timed out, or is missing its schema. It is the only failure that lets
	// callers degrade to stateless sessions.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// SessionRepository is the persistence boundary for mobile sessions.
// Not-found is never an error: FindByID returns nil and updates report zero rows.
type SessionRepository interface {
	// Create persists a new session row.
	Create(ctx context.Context, session *entity.Session) error

	// FindByID returns the session or nil when no row exists.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error)

	// ConditionalUpdate atomically applies fields only when the stored hash still
	// equals expectedHash, the row is not revoked and both ceilings are after now.
	// It returns the number of rows updated (0 or 1).
	ConditionalUpdate(ctx context.Context, id uuid.UUID, expectedHash string, fields entity.RotationFields, now time.Time) (int64, error)

	// RevokeByID marks a single session revoked. Already revoked rows are left untouched.
	RevokeByID(ctx context.Context, id uuid.UUID, now time.Time) error

	// RevokeAllForPrincipal marks every unrevoked session of the principal revoked
	// and returns how many rows changed.
	RevokeAllForPrincipal(ctx context.Context, principalType entity.PrincipalType, principalID string, now time.Time) (int64, error)
}
