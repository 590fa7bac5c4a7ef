// Package handler exposes the admin dashboard endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certledger/internal/stats"
	"certledger/pkg/platform/httputil"
	"certledger/pkg/requestcontext"
)

// Service computes the dashboard payload.
type Service interface {
	Dashboard(ctx context.Context) (stats.Dashboard, error)
}

// Handler serves the dashboard endpoint.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the dashboard endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/stats", h.HandleStats)
}

// Envelope is the wire shape of GET /admin/stats.
type Envelope struct {
	Status string          `json:"status"`
	Data   stats.Dashboard `json:"data"`
}

// HandleStats handles GET /admin/stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dashboard, err := h.service.Dashboard(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "dashboard stats failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, Envelope{Status: "success", Data: dashboard})
}
