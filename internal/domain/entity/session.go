package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Session represents one logical mobile login on one device.
// Rows are never physically deleted here; expiry and revocation are logical.
type Session struct {
	ID                    uuid.UUID     // Opaque, unguessable session id. First half of the stateful refresh token.
	PrincipalID           string        // The principal this session authenticates.
	PrincipalType         PrincipalType // Applicant or referrer.
	RefreshTokenHash      string        // Digest of the current refresh secret. Replaced on every rotation.
	TokenEpoch            int64         // Principal token epoch observed when the session was created.
	SessionExpiresAt      time.Time     // Hard ceiling, fixed at creation.
	RefreshTokenExpiresAt time.Time     // Moving ceiling, never beyond SessionExpiresAt.
	RevokedAt             *time.Time    // Non-nil sessions are permanently unusable.
	UserAgent             string        // Diagnostic only.
	LastUsedAt            *time.Time    // Updated on every rotation.
	CreatedAt             time.Time
}

// IsRevoked reports whether the session has been revoked.
func (s *Session) IsRevoked() bool {
	return s.RevokedAt != nil
}

// IsUsableAt reports whether the session is neither revoked nor past either ceiling at now.
func (s *Session) IsUsableAt(now time.Time) bool {
	if s.IsRevoked() {
		return false
	}

	return now.Before(s.SessionExpiresAt) && now.Before(s.RefreshTokenExpiresAt)
}

// RotationFields are the columns replaced by a successful rotation.
type RotationFields struct {
	RefreshTokenHash      string
	RefreshTokenExpiresAt time.Time
	LastUsedAt            time.Time
	UserAgent             string
}

// SessionMode tells whether a token pair is backed by a stored session.
type SessionMode string

const (
	SessionModeStateful  SessionMode = "stateful"
	SessionModeStateless SessionMode = "stateless"
)

// TokenPair is what Issue and Refresh hand back to entry points.
type TokenPair struct {
	AccessToken           string
	AccessTokenExpiresIn  int64 // seconds
	RefreshToken          string
	RefreshTokenExpiresIn int64 // seconds
	Mode                  SessionMode
	SessionID             *uuid.UUID // nil for stateless pairs
}

// DeviceInfo carries request metadata stored on the session for diagnostics.
type DeviceInfo struct {
	UserAgent string
}

// TruncateUserAgent cuts ua to at most maxBytes on a rune boundary and drops
// invalid UTF-8, so the result always fits a text column.
func TruncateUserAgent(ua string, maxBytes int) string {
	ua = strings.ToValidUTF8(ua, "")
	if len(ua) <= maxBytes {
		return ua
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(ua[cut]) {
		cut--
	}

	return ua[:cut]
}
