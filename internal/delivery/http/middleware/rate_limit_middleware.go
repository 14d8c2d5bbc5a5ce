package middleware

import (
	"log/slog"
	"math"
	"strconv"
	"time"

	"referral/config"
	deliverycontext "referral/internal/delivery/context"
	"referral/internal/delivery/http/response"
	"referral/internal/domain/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// Rate limit policy names.
const (
	PolicyExchange = "exchange"
	PolicyRefresh  = "refresh"
)

const (
	headerRateLimitLimit     = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRateLimitReset     = "X-RateLimit-Reset"
	headerRetryAfter         = "Retry-After"
)

var defaultPolicies = map[string]service.RateLimitPolicy{
	PolicyExchange: {Name: PolicyExchange, Limit: 10, Window: time.Minute},
	PolicyRefresh:  {Name: PolicyRefresh, Limit: 30, Window: time.Minute},
}

// RateLimitParams holds dependencies for RateLimitMiddleware, injected by Fx.
type RateLimitParams struct {
	fx.In

	Config  *config.Config
	Limiter service.RateLimiter
	Metrics service.SessionMetrics
	Logger  *slog.Logger
}

// RateLimitMiddleware gates requests before any credential is inspected.
type RateLimitMiddleware struct {
	enabled  bool
	failOpen bool
	policies map[string]service.RateLimitPolicy
	limiter  service.RateLimiter
	metrics  service.SessionMetrics
	logger   *slog.Logger
}

// NewRateLimitMiddleware is the constructor for RateLimitMiddleware.
func NewRateLimitMiddleware(params RateLimitParams) *RateLimitMiddleware {
	m := &RateLimitMiddleware{
		enabled:  true,
		failOpen: true,
		policies: make(map[string]service.RateLimitPolicy, len(defaultPolicies)),
		limiter:  params.Limiter,
		metrics:  params.Metrics,
		logger:   params.Logger,
	}
	for name, policy := range defaultPolicies {
		m.policies[name] = policy
	}

	if cfg := params.Config.RateLimit; cfg != nil {
		m.enabled = cfg.Enabled
		m.failOpen = cfg.FailOpen
		m.override(PolicyExchange, cfg.Exchange)
		m.override(PolicyRefresh, cfg.Refresh)
	}

	return m
}

func (m *RateLimitMiddleware) override(name string, policy config.RateLimitPolicy) {
	current := m.policies[name]
	if policy.Limit > 0 {
		current.Limit = policy.Limit
	}
	if policy.Window > 0 {
		current.Window = policy.Window
	}
	m.policies[name] = current
}

// Limit returns a middleware enforcing the named policy per client IP.
func (m *RateLimitMiddleware) Limit(policyName string) echo.MiddlewareFunc {
	policy := m.policies[policyName]

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !m.enabled || m.limiter == nil {
			return next
		}

		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := c.Path() + "|" + c.RealIP()

			decision, err := m.limiter.Allow(ctx, key, policy)
			if err != nil {
				log := deliverycontext.GetLoggerOrDefault(ctx, m.logger)
				if m.failOpen {
					log.Warn("Rate limiter unavailable, allowing request", slog.String("policy", policy.Name), slog.Any("error", err))

					return next(c)
				}
				log.Error("Rate limiter unavailable, rejecting request", slog.String("policy", policy.Name), slog.Any("error", err))

				return response.RateLimited(c, int(policy.Window.Seconds()))
			}

			header := c.Response().Header()
			header.Set(headerRateLimitLimit, strconv.Itoa(decision.Limit))
			header.Set(headerRateLimitRemaining, strconv.Itoa(decision.Remaining))
			header.Set(headerRateLimitReset, strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Allowed {
				retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				header.Set(headerRetryAfter, strconv.Itoa(retryAfter))
				m.metrics.RateLimited(policy.Name)

				return response.RateLimited(c, retryAfter)
			}

			return next(c)
		}
	}
}
