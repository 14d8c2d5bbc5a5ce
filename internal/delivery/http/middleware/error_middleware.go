package middleware

import (
	"log/slog"
	"net/http"

	deliverycontext "referral/internal/delivery/context"
	"referral/internal/delivery/http/response"
	domainerrors "referral/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// ErrorMiddleware handles errors in the HTTP pipeline
type ErrorMiddleware struct {
	logger *slog.Logger
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		logger: logger,
	}
}

// HandleHTTPError handles errors as Echo's HTTPErrorHandler
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	log := deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger)

	if appErr, ok := domainerrors.AsAppError(err); ok {
		if appErr.HTTPCode() >= http.StatusInternalServerError {
			log.Error("Request failed",
				slog.Any("error", err),
				slog.String("path", c.Path()),
			)
		}
		_ = response.Error(c, appErr)

		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = response.Error(c, fromHTTPError(httpErr))

		return
	}

	log.Error("Unhandled error",
		slog.Any("error", err),
		slog.String("path", c.Request().URL.Path),
		slog.String("method", c.Request().Method),
	)

	_ = response.Error(c, domainerrors.ErrInternal)
}

// fromHTTPError maps echo's own failures onto the error taxonomy.
func fromHTTPError(httpErr *echo.HTTPError) domainerrors.AppError {
	switch {
	case httpErr.Code == http.StatusUnsupportedMediaType,
		httpErr.Code == http.StatusRequestEntityTooLarge,
		httpErr.Code == http.StatusBadRequest:
		return domainerrors.ErrInvalidRequest
	case httpErr.Code == http.StatusUnauthorized:
		return domainerrors.ErrInvalidOrExpiredSession
	case httpErr.Code == http.StatusTooManyRequests:
		return domainerrors.ErrRateLimited
	case httpErr.Code >= http.StatusInternalServerError:
		return domainerrors.ErrInternal
	}

	message := http.StatusText(httpErr.Code)
	if msg, ok := httpErr.Message.(string); ok && msg != "" {
		message = msg
	}

	return domainerrors.NewBaseError(httpErr.Code, "HTTP_ERROR", message, "")
}
