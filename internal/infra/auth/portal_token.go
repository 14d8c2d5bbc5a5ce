package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"referral/config"
	"referral/internal/domain/service"
)

const portalTokenUse = "portal"

type portalClaims struct {
	Epoch    int64  `json:"ver"`
	TokenUse string `json:"typ"`
	jwt.RegisteredClaims
}

// portalTokenVerifier checks referrer portal link tokens minted by the web portal.
type portalTokenVerifier struct {
	secret    []byte
	clockSkew time.Duration
	now       func() time.Time
}

// NewPortalTokenVerifier builds the verifier from application config.
func NewPortalTokenVerifier(cfg *config.Config) (service.PortalTokenVerifier, error) {
	return NewPortalTokenVerifierWithClock(cfg.SecretKey.Portal, cfg.Session.ClockSkew, time.Now)
}

// NewPortalTokenVerifierWithClock builds the verifier with an explicit clock.
func NewPortalTokenVerifierWithClock(secret string, clockSkew time.Duration, now func() time.Time) (service.PortalTokenVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("portal token secret must be provided")
	}

	return &portalTokenVerifier{secret: []byte(secret), clockSkew: clockSkew, now: now}, nil
}

// Verify returns the portal claims or ErrTokenInvalid / ErrTokenExpired.
func (v *portalTokenVerifier) Verify(token string) (*service.PortalClaims, error) {
	claims := &portalClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, service.ErrTokenExpired
		}

		return nil, service.ErrTokenInvalid
	}

	if claims.TokenUse != portalTokenUse || claims.Subject == "" || claims.ID == "" {
		return nil, service.ErrTokenInvalid
	}

	return &service.PortalClaims{
		ReferrerID:    claims.Subject,
		Epoch:         claims.Epoch,
		TokenID:       claims.ID,
		ExpiresAt:     claims.ExpiresAt.Time,
		AcceptedUntil: claims.ExpiresAt.Add(v.clockSkew),
	}, nil
}

// SignPortalToken mints a portal link token. The web portal owns issuance in
// production; this exists for tooling and tests.
func SignPortalToken(secret, referrerID, tokenID string, epoch int64, expiresAt time.Time) (string, error) {
	claims := &portalClaims{
		Epoch:    epoch,
		TokenUse: portalTokenUse,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   referrerID,
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "sign portal token")
	}

	return signed, nil
}
