package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	deliverycontext "referral/internal/delivery/context"
	"referral/internal/domain/entity"
	domainerrors "referral/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(deliverycontext.WithRequestID(req.Context(), "req-1"))
	rec := httptest.NewRecorder()

	return echo.New().NewContext(req, rec), rec
}

func TestExchangeResponseShape(t *testing.T) {
	c, rec := newContext()
	pair := &entity.TokenPair{
		AccessToken:           "a",
		AccessTokenExpiresIn:  900,
		RefreshToken:          "r",
		RefreshTokenExpiresIn: 2592000,
		Mode:                  entity.SessionModeStateful,
	}

	require.NoError(t, Success(c, http.StatusOK, ExchangeResponse{
		TokenResponse:    NewTokenResponse(pair),
		PrincipalSummary: entity.PrincipalSummary{ID: "A1", Type: entity.PrincipalTypeApplicant},
	}))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "a", body["accessToken"])
	assert.InDelta(t, 900, body["accessTokenExpiresIn"], 0)
	assert.Equal(t, "r", body["refreshToken"])
	assert.Equal(t, "stateful", body["sessionMode"])
	assert.Equal(t, map[string]any{"id": "A1", "type": "applicant"}, body["principalSummary"])
}

func TestErrorAndRateLimited(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, Error(c, domainerrors.ErrPrincipalArchived))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"This account has been archived","code":"PRINCIPAL_ARCHIVED","requestId":"req-1"}`, rec.Body.String())

	c, rec = newContext()
	require.NoError(t, RateLimited(c, 12))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"Too many requests, please retry later","code":"RATE_LIMITED","retryAfter":12,"requestId":"req-1"}`, rec.Body.String())
}
