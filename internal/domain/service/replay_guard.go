package service

import (
	"context"
	"time"
)

// ReplayGuard records one-time credential ids.
type ReplayGuard interface {
	// Consume marks id as used until expiresAt. It returns false when id was
	// already consumed.
	Consume(ctx context.Context, id string, expiresAt time.Time) (bool, error)
}
