// Package httptransport assembles the HTTP surface: middleware chain,
// feature handler mounts, health, and metrics. It holds no business logic.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certledger/internal/platform/metrics"
	"certledger/pkg/platform/httputil"
	"certledger/pkg/platform/middleware/actor"
	"certledger/pkg/platform/middleware/metadata"
	"certledger/pkg/platform/middleware/requestid"
	"certledger/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by every feature handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Dependencies carries everything the router mounts.
type Dependencies struct {
	Handlers     []Registrar
	Metrics      *metrics.Metrics
	HealthChecks map[string]HealthCheck
	Logger       *slog.Logger
}

// NewRouter wires the middleware chain and all endpoints.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(metadata.ClientMetadata)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(actor.Middleware)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	r.Get("/healthz", handleHealth(deps))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range deps.Handlers {
		h.Register(r)
	}
	return r
}

func handleHealth(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		components := make(map[string]string, len(deps.HealthChecks))
		healthy := true
		for name, check := range deps.HealthChecks {
			if err := check(ctx); err != nil {
				healthy = false
				components[name] = "unhealthy"
				deps.Logger.WarnContext(ctx, "health check failed", "component", name, "error", err)
				continue
			}
			components[name] = "ok"
		}

		status := http.StatusOK
		overall := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status":     overall,
			"components": components,
		})
	}
}
