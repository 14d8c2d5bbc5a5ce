package entity

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSessionIsUsableAt(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	base := Session{
		SessionExpiresAt:      now.Add(48 * time.Hour),
		RefreshTokenExpiresAt: now.Add(time.Hour),
	}

	active := base
	assert.True(t, active.IsUsableAt(now))

	refreshExpired := base
	refreshExpired.RefreshTokenExpiresAt = now
	assert.False(t, refreshExpired.IsUsableAt(now))

	sessionExpired := base
	sessionExpired.SessionExpiresAt = now.Add(-time.Second)
	assert.False(t, sessionExpired.IsUsableAt(now))

	revokedAt := now.Add(-time.Minute)
	revoked := base
	revoked.RevokedAt = &revokedAt
	assert.True(t, revoked.IsRevoked())
	assert.False(t, revoked.IsUsableAt(now))
}

func TestPrincipalType(t *testing.T) {
	assert.True(t, PrincipalTypeApplicant.IsValid())
	assert.True(t, PrincipalTypeReferrer.IsValid())
	assert.False(t, PrincipalType("merchant").IsValid())
	assert.Equal(t, "referrer", PrincipalTypeReferrer.String())
}

func TestPrincipalSummary(t *testing.T) {
	p := &Principal{ID: "A1", Type: PrincipalTypeApplicant, DisplayName: "Ada", SecretHash: "x", TokenEpoch: 4}

	assert.Equal(t, PrincipalSummary{ID: "A1", Type: PrincipalTypeApplicant, DisplayName: "Ada"}, p.Summary())
}

func TestTruncateUserAgent(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		max  int
		want string
	}{
		{name: "short", ua: "referral-ios/1.0", max: 256, want: "referral-ios/1.0"},
		{name: "exact", ua: strings.Repeat("a", 256), max: 256, want: strings.Repeat("a", 256)},
		{name: "two byte rune across the limit", ua: strings.Repeat("a", 255) + "é", max: 256, want: strings.Repeat("a", 255)},
		{name: "rune ending on the limit", ua: strings.Repeat("a", 254) + "éz", max: 256, want: strings.Repeat("a", 254) + "é"},
		{name: "four byte rune across the limit", ua: strings.Repeat("a", 510) + "😀", max: 512, want: strings.Repeat("a", 510)},
		{name: "invalid bytes dropped", ua: "ios\xc3/1.0", max: 256, want: "ios/1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateUserAgent(tt.ua, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, len(got), tt.max)
		})
	}
}
