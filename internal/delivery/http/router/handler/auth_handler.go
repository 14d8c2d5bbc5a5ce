// Package handler contains the HTTP handlers for the mobile auth API.
package handler

import (
	"log/slog"
	"net/http"

	deliverycontext "referral/internal/delivery/context"
	"referral/internal/delivery/http/response"
	"referral/internal/domain/entity"
	domainerrors "referral/internal/domain/errors"
	"referral/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// ApplicantExchangeRequest is the body of the applicant exchange call.
type ApplicantExchangeRequest struct {
	ApplicantID string `json:"applicantId" validate:"required,max=64"`
	Secret      string `json:"secret" validate:"required,max=256"`
}

// ReferrerExchangeRequest is the body of the referrer exchange call.
type ReferrerExchangeRequest struct {
	PortalToken string `json:"portalToken" validate:"required,max=4096"`
}

// RefreshRequest is the body of refresh and logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required,max=4096"`
}

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC usecase.MobileAuthUsecase
	Logger *slog.Logger
}

// AuthHandler serves the mobile exchange, refresh and logout endpoints.
type AuthHandler struct {
	authUC usecase.MobileAuthUsecase
	logger *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler.
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC: params.AuthUC,
		logger: params.Logger,
	}
}

// ExchangeApplicant trades an applicant id and secret for a token pair.
func (h *AuthHandler) ExchangeApplicant(c echo.Context) error {
	var req ApplicantExchangeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authUC.ExchangeApplicant(c.Request().Context(), usecase.ApplicantCredentials{
		ApplicantID: req.ApplicantID,
		Secret:      req.Secret,
	}, deviceInfo(c))
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newExchangeResponse(result))
}

// ExchangeReferrer trades a one-time portal link token for a token pair.
func (h *AuthHandler) ExchangeReferrer(c echo.Context) error {
	var req ReferrerExchangeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authUC.ExchangeReferrer(c.Request().Context(), usecase.ReferrerCredentials{
		PortalToken: req.PortalToken,
	}, deviceInfo(c))
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newExchangeResponse(result))
}

// Refresh returns a handler rotating refresh tokens of principalType.
func (h *AuthHandler) Refresh(principalType entity.PrincipalType) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req RefreshRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		pair, err := h.authUC.Refresh(c.Request().Context(), principalType, req.RefreshToken, deviceInfo(c))
		if err != nil {
			return errors.WithStack(err)
		}

		return response.Success(c, http.StatusOK, response.NewTokenResponse(pair))
	}
}

// Logout returns a handler revoking the presented session.
func (h *AuthHandler) Logout(principalType entity.PrincipalType) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req RefreshRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		if err := h.authUC.Logout(c.Request().Context(), principalType, req.RefreshToken); err != nil {
			return errors.WithStack(err)
		}

		return response.Success(c, http.StatusOK, response.StatusResponse{OK: true})
	}
}

// LogoutAll revokes every session of the authenticated principal.
func (h *AuthHandler) LogoutAll(principalType entity.PrincipalType) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, ok := deliverycontext.GetPrincipal(c)
		if !ok {
			return errors.WithStack(domainerrors.ErrInvalidOrExpiredSession)
		}

		revoked, err := h.authUC.LogoutAll(c.Request().Context(), principalType, principal.ID)
		if err != nil {
			return errors.WithStack(err)
		}

		deliverycontext.GetLoggerOrDefault(c.Request().Context(), h.logger).Info("Revoked all sessions",
			slog.String("principal_type", principalType.String()),
			slog.String("principal_id", principal.ID),
			slog.Int64("revoked", revoked),
		)

		return response.Success(c, http.StatusOK, response.StatusResponse{OK: true, Revoked: revoked})
	}
}

// Session describes the authenticated principal.
func (h *AuthHandler) Session(c echo.Context) error {
	principal, ok := deliverycontext.GetPrincipal(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrInvalidOrExpiredSession)
	}

	return response.Success(c, http.StatusOK, response.SessionResponse{OK: true, PrincipalSummary: principal.Summary()})
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errors.Wrap(domainerrors.ErrInvalidRequest, "malformed request body")
	}

	return c.Validate(req)
}

const maxUserAgentBytes = 256

func deviceInfo(c echo.Context) entity.DeviceInfo {
	return entity.DeviceInfo{UserAgent: entity.TruncateUserAgent(c.Request().UserAgent(), maxUserAgentBytes)}
}

func newExchangeResponse(result *usecase.ExchangeResult) response.ExchangeResponse {
	return response.ExchangeResponse{
		TokenResponse:    response.NewTokenResponse(result.Tokens),
		PrincipalSummary: result.Principal,
	}
}
