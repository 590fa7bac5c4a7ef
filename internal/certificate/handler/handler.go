// Package handler wires certificate record management endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"certledger/internal/certificate/models"
	"certledger/internal/certificate/store"
	dErrors "certledger/pkg/domainerrors"
	"certledger/pkg/platform/httputil"
	"certledger/pkg/requestcontext"
)

// Service defines the interface for certificate record operations.
type Service interface {
	Register(ctx context.Context, rec models.CertificateRecord, issuer string) (store.UpsertResult, error)
	Get(ctx context.Context, rollNumber string) (models.CertificateRecord, error)
	List(ctx context.Context, filter store.ListFilter) ([]models.CertificateRecord, int, error)
	Delete(ctx context.Context, rollNumber string) error
	ToggleBlacklist(ctx context.Context, rollNumber string, blacklisted bool, reason string) (models.CertificateRecord, error)
}

// Handler exposes certificate CRUD plus the blacklist switch.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts certificate endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/certificates", h.HandleRegister)
	r.Get("/certificates", h.HandleList)
	r.Get("/certificates/{rollNumber}", h.HandleGet)
	r.Delete("/certificates/{rollNumber}", h.HandleDelete)
	r.Patch("/certificates/{rollNumber}/blacklist", h.HandleBlacklist)
}

// HandleRegister handles POST /certificates requests. Registration upserts:
// a fresh roll number answers 201, a re-registration answers 200.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	issuer := requestcontext.Actor(ctx)
	if issuer == "" {
		issuer = "system"
	}

	res, err := h.service.Register(ctx, req.Record(), issuer)
	if err != nil {
		h.logger.ErrorContext(ctx, "certificate registration failed",
			"request_id", requestID,
			"roll_number", req.RollNumber,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if res.WasInsert {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, fromRecord(res.Record))
}

// HandleList handles GET /certificates requests with page, limit, and
// blacklisted query parameters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := store.ListFilter{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 10),
	}
	if raw := r.URL.Query().Get("blacklisted"); raw != "" {
		flagged, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "blacklisted must be true or false"))
			return
		}
		filter.Blacklisted = &flagged
	}

	records, total, err := h.service.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "certificate listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListResponse{
		Certificates: fromRecords(records),
		Pagination:   paginate(filter.Page, filter.Limit, total),
	})
}

// HandleGet handles GET /certificates/{rollNumber} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, err := h.service.Get(ctx, chi.URLParam(r, "rollNumber"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRecord(rec))
}

// HandleDelete handles DELETE /certificates/{rollNumber} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rollNumber := chi.URLParam(r, "rollNumber")

	if err := h.service.Delete(ctx, rollNumber); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "certificate deleted",
		"request_id", requestcontext.RequestID(ctx),
		"roll_number", rollNumber,
		"actor", requestcontext.Actor(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "certificate deleted",
	})
}

// HandleBlacklist handles PATCH /certificates/{rollNumber}/blacklist
// requests.
func (h *Handler) HandleBlacklist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	rollNumber := chi.URLParam(r, "rollNumber")

	req, ok := httputil.DecodeAndPrepare[*BlacklistRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.ToggleBlacklist(ctx, rollNumber, *req.Blacklisted, req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "blacklist toggle failed",
			"request_id", requestID,
			"roll_number", rollNumber,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "blacklist toggled",
		"request_id", requestID,
		"roll_number", rollNumber,
		"blacklisted", *req.Blacklisted,
		"actor", requestcontext.Actor(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, fromRecord(rec))
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
