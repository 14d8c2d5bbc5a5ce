package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "referral/internal/errors"
)

func TestTaxonomyStatusCodes(t *testing.T) {
	cases := []struct {
		err  *BaseError
		code int
	}{
		{ErrInvalidRequest, http.StatusBadRequest},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrInvalidOrExpiredSession, http.StatusUnauthorized},
		{ErrPrincipalArchived, http.StatusForbidden},
		{ErrPrincipalNotFound, http.StatusNotFound},
		{ErrRateLimited, http.StatusTooManyRequests},
		{ErrInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.ErrorCode(), func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.HTTPCode())
		})
	}
}

func TestPrincipalArchivedError(t *testing.T) {
	err := pkgerrors.Wrap(NewPrincipalArchived("ref-1"), "refresh")

	assert.ErrorIs(t, err, ErrPrincipalArchived)

	archived, ok := pkgerrors.AsType[*PrincipalArchivedError](err)
	require.True(t, ok)
	assert.Equal(t, "ref-1", archived.PrincipalID)

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "PRINCIPAL_ARCHIVED", appErr.ErrorCode())
	assert.Equal(t, http.StatusForbidden, appErr.HTTPCode())
}

func TestBaseErrorWithDetailsStillMatches(t *testing.T) {
	err := ErrInvalidRequest.WithDetails("refreshToken is required")

	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "refreshToken is required", err.Details())
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(ErrInvalidOrExpiredSession, "req-9")

	assert.False(t, resp.OK)
	assert.Equal(t, "INVALID_OR_EXPIRED_SESSION", resp.Code)
	assert.Equal(t, "req-9", resp.RequestID)
}
