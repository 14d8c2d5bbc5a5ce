// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"net/http"

	"referral/config"
	"referral/internal/delivery/http/middleware"
	"referral/internal/delivery/http/router/handler"
	"referral/internal/domain/entity"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	Config         *config.Config
	AuthHandler    *handler.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimit      *middleware.RateLimitMiddleware
	// MetricsHandler is nil when metrics are disabled.
	MetricsHandler http.Handler `name:"metricsHandler" optional:"true"`
}

// router holds all the handlers that need to be registered.
type router struct {
	cfg            *config.Config
	authHandler    *handler.AuthHandler
	authMiddleware *middleware.AuthMiddleware
	rateLimit      *middleware.RateLimitMiddleware
	metricsHandler http.Handler
}

// NewRouter is the constructor for the Router.
func NewRouter(params RouterParams) *router {
	return &router{
		cfg:            params.Config,
		authHandler:    params.AuthHandler,
		authMiddleware: params.AuthMiddleware,
		rateLimit:      params.RateLimit,
		metricsHandler: params.MetricsHandler,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)

	if r.metricsHandler != nil && r.cfg.Metrics != nil && r.cfg.Metrics.Enabled {
		e.GET(r.cfg.Metrics.Path, echo.WrapHandler(r.metricsHandler))
	}

	v1 := e.Group("/v1")

	applicant := v1.Group("/applicant/mobile")
	{
		applicant.POST("/exchange", r.authHandler.ExchangeApplicant, r.rateLimit.Limit(middleware.PolicyExchange))
		r.registerSessionRoutes(applicant, entity.PrincipalTypeApplicant)
	}

	referrer := v1.Group("/referrer/mobile")
	{
		referrer.POST("/exchange", r.authHandler.ExchangeReferrer, r.rateLimit.Limit(middleware.PolicyExchange))
		r.registerSessionRoutes(referrer, entity.PrincipalTypeReferrer)
	}
}

// registerSessionRoutes adds the routes shared by every principal type.
func (r *router) registerSessionRoutes(g *echo.Group, principalType entity.PrincipalType) {
	authenticated := r.authMiddleware.Authenticate(principalType)

	g.POST("/refresh", r.authHandler.Refresh(principalType), r.rateLimit.Limit(middleware.PolicyRefresh))
	g.POST("/logout", r.authHandler.Logout(principalType), r.rateLimit.Limit(middleware.PolicyRefresh))
	g.POST("/logout-all", r.authHandler.LogoutAll(principalType), authenticated)
	g.GET("/session", r.authHandler.Session, authenticated)
}
