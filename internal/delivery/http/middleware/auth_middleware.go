package middleware

import (
	"strings"

	deliverycontext "referral/internal/delivery/context"
	"referral/internal/domain/entity"
	domainerrors "referral/internal/domain/errors"
	"referral/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const bearerPrefix = "Bearer "

// AuthMiddleware authenticates mobile access tokens against the principal's
// live archived flag and token epoch.
type AuthMiddleware struct {
	authUC usecase.MobileAuthUsecase
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(authUC usecase.MobileAuthUsecase) *AuthMiddleware {
	return &AuthMiddleware{authUC: authUC}
}

// Authenticate returns a middleware accepting access tokens of principalType only.
func (m *AuthMiddleware) Authenticate(principalType entity.PrincipalType) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if len(authHeader) <= len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
				return errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, "missing bearer token")
			}

			principal, err := m.authUC.Authenticate(c.Request().Context(), principalType, strings.TrimSpace(authHeader[len(bearerPrefix):]))
			if err != nil {
				return err
			}

			deliverycontext.SetPrincipal(c, principal)

			return next(c)
		}
	}
}
