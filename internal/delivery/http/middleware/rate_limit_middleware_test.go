package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"referral/config"
	"referral/internal/domain/service"
	"referral/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type stubLimiter struct {
	calls    int
	decision service.RateLimitDecision
	err      error
	policy   service.RateLimitPolicy
}

func (s *stubLimiter) Allow(_ context.Context, _ string, policy service.RateLimitPolicy) (service.RateLimitDecision, error) {
	s.calls++
	s.policy = policy

	return s.decision, s.err
}

func serveLimited(m *RateLimitMiddleware, policy string) *httptest.ResponseRecorder {
	e := echo.New()
	e.POST("/exchange", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, m.Limit(policy))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/exchange", nil))

	return rec
}

func newRateLimitMiddlewareForTest(cfg *config.RateLimitConfig, limiter service.RateLimiter) *RateLimitMiddleware {
	return NewRateLimitMiddleware(RateLimitParams{
		Config:  &config.Config{RateLimit: cfg},
		Limiter: limiter,
		Metrics: metrics.Noop{},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRateLimitMiddleware_BackendFailure(t *testing.T) {
	tests := []struct {
		name     string
		failOpen bool
		want     int
	}{
		{name: "fail open lets the request through", failOpen: true, want: http.StatusNoContent},
		{name: "fail closed rejects", failOpen: false, want: http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := &stubLimiter{err: errors.New("redis: connection refused")}
			m := newRateLimitMiddlewareForTest(&config.RateLimitConfig{Enabled: true, FailOpen: tt.failOpen}, limiter)

			rec := serveLimited(m, PolicyExchange)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, 1, limiter.calls)
		})
	}
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	limiter := &stubLimiter{}
	m := newRateLimitMiddlewareForTest(&config.RateLimitConfig{Enabled: false}, limiter)

	rec := serveLimited(m, PolicyExchange)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, limiter.calls)
}

func TestRateLimitMiddleware_PolicyOverridesAndHeaders(t *testing.T) {
	resetAt := time.Date(2026, 4, 1, 10, 1, 0, 0, time.UTC)
	limiter := &stubLimiter{decision: service.RateLimitDecision{
		Allowed:    false,
		Limit:      5,
		Remaining:  0,
		RetryAfter: 1500 * time.Millisecond,
		ResetAt:    resetAt,
	}}
	m := newRateLimitMiddlewareForTest(&config.RateLimitConfig{
		Enabled:  true,
		FailOpen: true,
		Exchange: config.RateLimitPolicy{Limit: 5},
	}, limiter)

	rec := serveLimited(m, PolicyExchange)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, service.RateLimitPolicy{Name: PolicyExchange, Limit: 5, Window: time.Minute}, limiter.policy)
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1775037660", rec.Header().Get("X-RateLimit-Reset"))
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}
