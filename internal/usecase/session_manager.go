package usecase

import (
	"context"

	"referral/internal/domain/entity"
)

// IssueInput carries a live-read principal into Issue.
type IssueInput struct {
	Principal *entity.Principal
	// ExpectedEpoch, when set, must equal the principal's current token epoch.
	ExpectedEpoch *int64
	Device        entity.DeviceInfo
}

// SessionManager runs the session lifecycle for one principal type.
type SessionManager interface {
	// PrincipalType reports which principal kind this manager serves.
	PrincipalType() entity.PrincipalType

	// Issue creates a session and returns a token pair. When the session store
	// is unavailable the pair carries a stateless refresh token instead.
	Issue(ctx context.Context, input IssueInput) (*entity.TokenPair, error)

	// Refresh validates a presented refresh token and rotates it.
	Refresh(ctx context.Context, refreshToken string, device entity.DeviceInfo) (*entity.TokenPair, error)

	// Revoke marks the session behind a stateful refresh token revoked.
	// Stateless tokens cannot be targeted and are accepted as a no-op.
	Revoke(ctx context.Context, refreshToken string) error

	// RevokeAll revokes every live session of the principal.
	RevokeAll(ctx context.Context, principalID string) (int64, error)

	// Authenticate verifies an access token against the principal's live state.
	Authenticate(ctx context.Context, accessToken string) (*entity.Principal, error)
}
