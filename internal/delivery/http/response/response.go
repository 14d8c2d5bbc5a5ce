// Package response shapes the JSON bodies of the mobile auth API.
package response

import (
	"net/http"

	deliverycontext "referral/internal/delivery/context"
	"referral/internal/domain/entity"
	domainerrors "referral/internal/domain/errors"

	"github.com/labstack/echo/v4"
)

// TokenResponse is the body returned by refresh.
type TokenResponse struct {
	OK                    bool   `json:"ok"`
	AccessToken           string `json:"accessToken"`
	AccessTokenExpiresIn  int64  `json:"accessTokenExpiresIn"`
	RefreshToken          string `json:"refreshToken"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn"`
	SessionMode           string `json:"sessionMode"`
}

// ExchangeResponse is the body returned by exchange.
type ExchangeResponse struct {
	TokenResponse
	PrincipalSummary entity.PrincipalSummary `json:"principalSummary"`
}

// StatusResponse acknowledges calls that return no data.
type StatusResponse struct {
	OK      bool  `json:"ok"`
	Revoked int64 `json:"revoked,omitempty"`
}

// SessionResponse describes the principal behind an access token.
type SessionResponse struct {
	OK               bool                    `json:"ok"`
	PrincipalSummary entity.PrincipalSummary `json:"principalSummary"`
}

// NewTokenResponse renders a token pair.
func NewTokenResponse(pair *entity.TokenPair) TokenResponse {
	return TokenResponse{
		OK:                    true,
		AccessToken:           pair.AccessToken,
		AccessTokenExpiresIn:  pair.AccessTokenExpiresIn,
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresIn: pair.RefreshTokenExpiresIn,
		SessionMode:           string(pair.Mode),
	}
}

// Success writes data with the given status.
func Success(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, data)
}

// Error writes the error body for appErr. 5xx details never leave the process.
func Error(c echo.Context, appErr domainerrors.AppError) error {
	body := domainerrors.NewErrorResponse(appErr, deliverycontext.GetRequestIDFromContext(c.Request().Context()))

	return c.JSON(appErr.HTTPCode(), body)
}

// RateLimited writes a 429 with the retry hint in seconds.
func RateLimited(c echo.Context, retryAfterSeconds int) error {
	body := domainerrors.NewErrorResponse(domainerrors.ErrRateLimited, deliverycontext.GetRequestIDFromContext(c.Request().Context()))
	body.RetryAfter = retryAfterSeconds

	return c.JSON(http.StatusTooManyRequests, body)
}
