// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"referral/internal/domain/entity"
)

// ApplicantCredentials is the base credential an applicant exchanges.
type ApplicantCredentials struct {
	ApplicantID string
	Secret      string
}

// ReferrerCredentials is the one-time portal link token a referrer exchanges.
type ReferrerCredentials struct {
	PortalToken string
}

// ExchangeResult is a new token pair plus the principal it belongs to.
type ExchangeResult struct {
	Tokens    *entity.TokenPair
	Principal entity.PrincipalSummary
}

// MobileAuthUsecase defines the mobile sign-in entry points.
type MobileAuthUsecase interface {
	ExchangeApplicant(ctx context.Context, creds ApplicantCredentials, device entity.DeviceInfo) (*ExchangeResult, error)
	ExchangeReferrer(ctx context.Context, creds ReferrerCredentials, device entity.DeviceInfo) (*ExchangeResult, error)

	// Refresh rotates a refresh token. An archived principal additionally has
	// every remaining session revoked.
	Refresh(ctx context.Context, principalType entity.PrincipalType, refreshToken string, device entity.DeviceInfo) (*entity.TokenPair, error)

	Logout(ctx context.Context, principalType entity.PrincipalType, refreshToken string) error
	LogoutAll(ctx context.Context, principalType entity.PrincipalType, principalID string) (int64, error)

	// Authenticate resolves the principal behind an access token.
	Authenticate(ctx context.Context, principalType entity.PrincipalType, accessToken string) (*entity.Principal, error)
}
