// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"referral/config"
	"referral/internal/domain/entity"
	"referral/internal/domain/service"
)

const accessTokenUse = "access"

// TokenConfig is the key material and TTL table handed to the token codec.
type TokenConfig struct {
	AccessSecret   string
	Issuer         string
	AccessTokenTTL time.Duration
	ClockSkew      time.Duration
	Now            func() time.Time
}

// NewTokenConfig builds a TokenConfig from application config.
func NewTokenConfig(cfg *config.Config) TokenConfig {
	return TokenConfig{
		AccessSecret:   cfg.SecretKey.Access,
		Issuer:         cfg.Session.Issuer,
		AccessTokenTTL: cfg.Session.AccessTokenTTL,
		ClockSkew:      cfg.Session.ClockSkew,
		Now:            time.Now,
	}
}

// jwtService is a concrete implementation of the TokenService interface using HS256 JWTs.
type jwtService struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	clockSkew time.Duration
	now       func() time.Time
}

// NewJWTService is the constructor for jwtService.
func NewJWTService(cfg TokenConfig) (service.TokenService, error) {
	if strings.TrimSpace(cfg.AccessSecret) == "" {
		return nil, errors.New("access token secret must be provided")
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, errors.New("access token ttl must be positive")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &jwtService{
		secret:    []byte(cfg.AccessSecret),
		issuer:    cfg.Issuer,
		accessTTL: cfg.AccessTokenTTL,
		clockSkew: cfg.ClockSkew,
		now:       now,
	}, nil
}

// IssueAccessToken signs a token bound to the principal id, type and current epoch.
func (s *jwtService) IssueAccessToken(principal *entity.Principal) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.accessTTL)

	claims := &service.AccessClaims{
		PrincipalType: principal.Type,
		Epoch:         principal.TokenEpoch,
		TokenUse:      accessTokenUse,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign access token")
	}

	return token, expiresAt, nil
}

// VerifyAccessToken checks signature, issuer and the explicit exp claim.
func (s *jwtService) VerifyAccessToken(tokenString string) (*service.AccessClaims, error) {
	claims := &service.AccessClaims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, service.ErrTokenExpired
		}

		return nil, service.ErrTokenInvalid
	}

	if claims.TokenUse != accessTokenUse || claims.Subject == "" || !claims.PrincipalType.IsValid() {
		return nil, service.ErrTokenInvalid
	}

	return claims, nil
}

// AccessTokenTTL returns the configured duration for access tokens.
func (s *jwtService) AccessTokenTTL() time.Duration {
	return s.accessTTL
}
