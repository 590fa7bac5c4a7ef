// Package handler exposes the bulk upload endpoint.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"certledger/internal/ingestion"
	dErrors "certledger/pkg/domainerrors"
	"certledger/pkg/platform/httputil"
	"certledger/pkg/platform/sentinel"
	"certledger/pkg/requestcontext"
)

// uploadField is the multipart form field carrying the CSV file.
const uploadField = "csvFile"

// Service defines the interface for batch ingestion.
type Service interface {
	Ingest(ctx context.Context, r io.Reader, issuer string) (ingestion.Report, error)
}

// Handler wires the bulk upload endpoint to the ingestion pipeline.
type Handler struct {
	service   Service
	logger    *slog.Logger
	maxUpload int64
}

func New(service Service, logger *slog.Logger, maxUpload int64) *Handler {
	return &Handler{service: service, logger: logger, maxUpload: maxUpload}
}

// Register mounts the bulk upload endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/certificates/bulk", h.HandleBulkUpload)
}

// envelope is the bulk upload response shape.
type envelope struct {
	Status  string               `json:"status"`
	Message string               `json:"message"`
	Summary ingestion.Summary    `json:"summary"`
	Errors  []ingestion.RowError `json:"errors,omitempty"`
}

// HandleBulkUpload handles POST /certificates/bulk requests. The issuer
// identity anchored with each row comes from the request actor.
func (h *Handler) HandleBulkUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "uploaded file too large"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "no CSV file uploaded"))
		return
	}
	defer file.Close()

	if !isCSV(header.Header.Get("Content-Type"), header.Filename) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid file type, only CSV files are allowed"))
		return
	}

	issuer := requestcontext.Actor(ctx)
	if issuer == "" {
		issuer = "system"
	}

	report, err := h.service.Ingest(ctx, file, issuer)
	if err != nil {
		h.logger.ErrorContext(ctx, "bulk upload failed",
			"request_id", requestID,
			"filename", header.Filename,
			"error", err,
		)
		if errors.Is(err, sentinel.ErrTimeout) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
				"bulk upload timed out, try a smaller file"))
			return
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "bulk upload completed",
		"request_id", requestID,
		"filename", header.Filename,
		"total", report.Summary.Total,
		"failed", report.Summary.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, envelope{
		Status:  "success",
		Message: "bulk certificate upload completed",
		Summary: report.Summary,
		Errors:  report.Errors,
	})
}

func isCSV(contentType, filename string) bool {
	if contentType == "text/csv" || strings.HasPrefix(contentType, "text/csv;") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".csv")
}
