// Package handler wires verification endpoints to the verification service.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certledger/internal/verification"
	dErrors "certledger/pkg/domainerrors"
	"certledger/pkg/platform/httputil"
	"certledger/pkg/requestcontext"
)

// uploadField is the multipart form field carrying the document.
const uploadField = "certificate"

// Service defines the interface for verification operations.
type Service interface {
	VerifyDocument(ctx context.Context, document []byte, mimeType, filename string) (verification.Result, error)
	VerifyByRollNumber(ctx context.Context, rollNumber string) (verification.Result, error)
}

// Handler exposes the verification surface.
type Handler struct {
	service   Service
	logger    *slog.Logger
	maxUpload int64
}

// New constructs a verification handler. maxUpload bounds the accepted
// document size in bytes.
func New(service Service, logger *slog.Logger, maxUpload int64) *Handler {
	return &Handler{service: service, logger: logger, maxUpload: maxUpload}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verify", h.HandleVerifyDocument)
	r.Post("/verify/{rollNumber}", h.HandleVerifyByRollNumber)
}

// HandleVerifyDocument handles POST /verify requests: a multipart document
// upload answered with a verdict envelope. Verdicts are always 200; only
// malformed requests and infrastructure failures map to error statuses.
func (h *Handler) HandleVerifyDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "uploaded document too large"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "no certificate file uploaded"))
		return
	}
	defer file.Close()

	document, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "could not read uploaded document"))
		return
	}

	result, err := h.service.VerifyDocument(ctx, document, header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		h.logger.ErrorContext(ctx, "document verification failed",
			"request_id", requestID,
			"filename", header.Filename,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document verified",
		"request_id", requestID,
		"filename", header.Filename,
		"status", result.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleVerifyByRollNumber handles POST /verify/{rollNumber} requests:
// identifier-only verification, no document involved.
func (h *Handler) HandleVerifyByRollNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	rollNumber := chi.URLParam(r, "rollNumber")
	if rollNumber == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "roll number is required"))
		return
	}

	result, err := h.service.VerifyByRollNumber(ctx, rollNumber)
	if err != nil {
		h.logger.ErrorContext(ctx, "identifier verification failed",
			"request_id", requestID,
			"roll_number", rollNumber,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "identifier verified",
		"request_id", requestID,
		"roll_number", rollNumber,
		"status", result.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}
