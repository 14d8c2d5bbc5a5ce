package service

import (
	"time"

	"referral/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Typed failures of token verification. Callers never see library errors.
var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// AccessClaims defines the custom claims for mobile access tokens.
type AccessClaims struct {
	PrincipalType entity.PrincipalType `json:"ptyp"`
	Epoch         int64                `json:"ver"`
	TokenUse      string               `json:"typ"`
	jwt.RegisteredClaims
}

// PrincipalID returns the subject of the token.
func (c *AccessClaims) PrincipalID() string {
	return c.Subject
}

// TokenService issues and verifies short-lived access tokens.
// Implementations are pure functions of their input and injected key material.
type TokenService interface {
	// IssueAccessToken signs a token for the principal at the given epoch and
	// returns it together with its expiry.
	IssueAccessToken(principal *entity.Principal) (token string, expiresAt time.Time, err error)

	// VerifyAccessToken checks signature and explicit expiry. It fails only with
	// ErrTokenInvalid or ErrTokenExpired.
	VerifyAccessToken(token string) (*AccessClaims, error)

	// AccessTokenTTL returns the configured lifetime of access tokens.
	AccessTokenTTL() time.Duration
}

// StatelessClaims is the content of a stateless refresh token.
type StatelessClaims struct {
	PrincipalID   string
	PrincipalType entity.PrincipalType
	Epoch         int64
	ExpiresAt     time.Time
}

// StatelessRefreshCodec seals and opens self-contained refresh tokens used
// while the session store is unavailable.
type StatelessRefreshCodec interface {
	// Issue returns a token and its expiry.
	Issue(principal *entity.Principal) (token string, expiresAt time.Time, err error)

	// Validate returns the claims when token is a well-formed, unexpired stateless
	// token for principalType, and nil otherwise.
	Validate(token string, principalType entity.PrincipalType) *StatelessClaims

	// IsStateless reports whether token carries the stateless prefix.
	IsStateless(token string) bool
}

// PortalClaims is the verified content of a referrer portal link token.
type PortalClaims struct {
	ReferrerID string
	Epoch      int64
	TokenID    string
	ExpiresAt  time.Time
	// AcceptedUntil is ExpiresAt plus the verifier's clock skew allowance,
	// the last instant Verify still accepts the token.
	AcceptedUntil time.Time
}

// PortalTokenVerifier checks the signature and expiry of referrer portal link tokens.
type PortalTokenVerifier interface {
	Verify(token string) (*PortalClaims, error)
}
