// Package httpapi assembles the HTTP surface: middleware, feature routes,
// health, and metrics exposition. Handlers stay thin; domain logic lives in
// the feature services.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docproof/internal/platform/metrics"
	"docproof/pkg/platform/httputil"
	"docproof/pkg/platform/middleware/requestid"
	"docproof/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by feature handlers that mount their own routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Deps carries everything the router needs.
type Deps struct {
	Logger      *slog.Logger
	HTTPMetrics *metrics.HTTP
	Handlers    []Registrar

	// HealthChecks maps a dependency name to its probe. A failing probe
	// degrades the health response but does not fail it.
	HealthChecks map[string]HealthCheck
}

// NewRouter builds the chi router with the standard middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(deps.HTTPMetrics.Middleware)
	r.Use(chimiddleware.Recoverer)

	for _, h := range deps.Handlers {
		h.Register(r)
	}

	r.Get("/health", handleHealth(deps))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealth reports liveness plus dependency status: "healthy" when every
// probe passes, "degraded" otherwise. The endpoint itself always answers 200
// so orchestrators distinguish "up but impaired" from "down".
func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		resp := healthResponse{Status: "healthy", Checks: make(map[string]string, len(deps.HealthChecks))}
		for name, check := range deps.HealthChecks {
			if err := check(ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks[name] = err.Error()
				deps.Logger.WarnContext(ctx, "health check failed",
					"dependency", name,
					"error", err,
				)
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}
