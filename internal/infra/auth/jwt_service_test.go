package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"referral/internal/domain/entity"
	"referral/internal/domain/service"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestJWTService(t *testing.T, clock *fakeClock) service.TokenService {
	t.Helper()
	svc, err := NewJWTService(TokenConfig{
		AccessSecret:   "test_access_secret_key_very_long_for_testing",
		Issuer:         "referral-test",
		AccessTokenTTL: 15 * time.Minute,
		ClockSkew:      5 * time.Second,
		Now:            clock.Now,
	})
	require.NoError(t, err)

	return svc
}

func TestJWTService_IssueAndVerify(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := newTestJWTService(t, clock)

	principal := &entity.Principal{ID: "R1", Type: entity.PrincipalTypeReferrer, TokenEpoch: 2}
	token, expiresAt, err := svc.IssueAccessToken(principal)
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(15*time.Minute), expiresAt)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "R1", claims.PrincipalID())
	assert.Equal(t, entity.PrincipalTypeReferrer, claims.PrincipalType)
	assert.Equal(t, int64(2), claims.Epoch)
	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, 15*time.Minute, svc.AccessTokenTTL())
}

func TestJWTService_ExpiredToken(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := newTestJWTService(t, clock)

	token, _, err := svc.IssueAccessToken(&entity.Principal{ID: "A1", Type: entity.PrincipalTypeApplicant})
	require.NoError(t, err)

	clock.Advance(15*time.Minute + 10*time.Second)

	claims, err := svc.VerifyAccessToken(token)
	assert.ErrorIs(t, err, service.ErrTokenExpired)
	assert.Nil(t, claims)
}

func TestJWTService_InvalidTokens(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := newTestJWTService(t, clock)

	other, err := NewJWTService(TokenConfig{
		AccessSecret:   "a_completely_different_secret_value",
		Issuer:         "referral-test",
		AccessTokenTTL: time.Minute,
		Now:            clock.Now,
	})
	require.NoError(t, err)
	forged, _, err := other.IssueAccessToken(&entity.Principal{ID: "A1", Type: entity.PrincipalTypeApplicant})
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "A1", "ptyp": "applicant", "typ": "access", "iss": "referral-test",
	})
	noExpToken, err := noExp.SignedString([]byte("test_access_secret_key_very_long_for_testing"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":     "clearly-not-a-jwt-token-format",
		"wrong key":   forged,
		"missing exp": noExpToken,
		"empty":       "",
	} {
		t.Run(name, func(t *testing.T) {
			claims, err := svc.VerifyAccessToken(token)
			assert.ErrorIs(t, err, service.ErrTokenInvalid)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTService_EmptySecret(t *testing.T) {
	svc, err := NewJWTService(TokenConfig{AccessTokenTTL: time.Minute})
	assert.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "access token secret must be provided")
}
