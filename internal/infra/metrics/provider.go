package metrics

import (
	"log/slog"
	"net/http"

	"referral/config"
	"referral/internal/domain/service"

	"go.uber.org/fx"
)

// Params defines the parameters required for metrics.
type Params struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// Result exposes the recorder and, when enabled, the scrape handler.
type Result struct {
	fx.Out

	Metrics service.SessionMetrics
	Handler http.Handler `name:"metricsHandler"`
}

// Provide returns Noop and no handler when metrics are disabled.
func Provide(params Params) Result {
	if params.Config.Metrics == nil || !params.Config.Metrics.Enabled {
		params.Logger.Info("Metrics disabled")

		return Result{Metrics: Noop{}}
	}

	m := New()

	return Result{Metrics: m, Handler: m.Handler()}
}

// Module wires metrics into the application.
var Module = fx.Module("metrics", fx.Provide(Provide))
