// Package handler exposes the verification trail for inspection.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"certledger/internal/audit"
	"certledger/pkg/platform/httputil"
	"certledger/pkg/requestcontext"
)

// Trail defines the read surface of the audit store.
type Trail interface {
	List(ctx context.Context, filter audit.ListFilter) ([]audit.Entry, int64, error)
}

// Handler serves the log listing endpoint.
type Handler struct {
	trail  Trail
	logger *slog.Logger
}

func New(trail Trail, logger *slog.Logger) *Handler {
	return &Handler{trail: trail, logger: logger}
}

// Register mounts the trail endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/logs", h.HandleList)
}

// EntryResponse is the wire shape of one trail entry.
type EntryResponse struct {
	ID           string                  `json:"id"`
	Action       string                  `json:"action"`
	SubjectID    string                  `json:"subjectId,omitempty"`
	Actor        string                  `json:"actor,omitempty"`
	RequestID    string                  `json:"requestId,omitempty"`
	ClientIP     string                  `json:"clientIp,omitempty"`
	Verdict      string                  `json:"verdict,omitempty"`
	Reasons      []string                `json:"reasons,omitempty"`
	Extracted    audit.ExtractedSnapshot `json:"extracted"`
	ComputedHash string                  `json:"computedHash,omitempty"`
	LedgerCheck  string                  `json:"ledgerCheck,omitempty"`
	RequestedAt  time.Time               `json:"requestedAt"`
}

// ListResponse is the envelope for GET /logs.
type ListResponse struct {
	Logs  []EntryResponse `json:"logs"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// HandleList handles GET /logs requests with page, limit, subjectId, and
// action query parameters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := audit.ListFilter{
		SubjectID: query.Get("subjectId"),
		Action:    audit.Action(query.Get("action")),
		Page:      queryInt(query.Get("page"), 1),
		Limit:     queryInt(query.Get("limit"), 20),
	}

	entries, total, err := h.trail.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "trail listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	logs := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, EntryResponse{
			ID:           e.ID.String(),
			Action:       string(e.Action),
			SubjectID:    e.SubjectID,
			Actor:        e.Actor,
			RequestID:    e.RequestID,
			ClientIP:     e.ClientIP,
			Verdict:      e.Verdict,
			Reasons:      e.Reasons,
			Extracted:    e.Extracted,
			ComputedHash: e.ComputedHash,
			LedgerCheck:  string(e.LedgerCheck),
			RequestedAt:  e.RequestedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{
		Logs:  logs,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	})
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
