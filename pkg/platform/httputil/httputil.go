// Package httputil centralizes JSON response envelopes and domain error
// translation so every handler renders errors the same way.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "certledger/pkg/domainerrors"
	"certledger/pkg/platform/sentinel"
)

// WriteJSON renders a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a domain error into a JSON error envelope. Internal
// errors omit the description so infrastructure details never leak to
// callers; everything else includes it.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	description := ""

	var domainErr dErrors.Error
	switch {
	case errors.As(err, &domainErr):
		code = domainErr.Code
		description = domainErr.Description
	case errors.Is(err, sentinel.ErrNotFound):
		code = dErrors.CodeNotFound
		description = "resource not found"
	case errors.Is(err, sentinel.ErrConflict):
		code = dErrors.CodeConflict
		description = "resource conflict"
	case errors.Is(err, sentinel.ErrTimeout), errors.Is(err, sentinel.ErrUnavailable):
		code = dErrors.CodeUnavailable
		description = "upstream dependency unavailable"
	}

	body := map[string]string{"error": string(code)}
	if description != "" && code != dErrors.CodeInternal {
		body["error_description"] = description
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// Validatable requests normalize and check themselves after decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes a JSON request body into T and runs its
// validation. On failure it writes the error response and returns ok=false
// so handlers can bail out with a bare return.
func DecodeAndPrepare[T Validatable](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "request decode failed", "request_id", requestID, "error", err)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed JSON body"))
		return req, false
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return req, false
	}
	return req, true
}
