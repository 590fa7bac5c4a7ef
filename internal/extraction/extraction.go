// Package extraction calls the external document-understanding service and
// returns the structured fields it read from a scanned certificate.
// Extraction is best-effort: every field may be absent, and failures are
// typed so the verdict engine can map them to a domain outcome instead of
// surfacing transport errors.
package extraction

import (
	"context"
	"fmt"

	"certledger/pkg/platform/sentinel"
)

// Fields is the ephemeral result of one extraction call. It is never
// persisted; Roll (or CertID when Roll is absent) keys the record lookup
// and the rest feeds reconciliation.
type Fields struct {
	CertID string `json:"certId"`
	Name   string `json:"name"`
	Roll   string `json:"roll"`
	Course string `json:"course"`
}

// Client extracts structured fields from a certificate document.
type Client interface {
	Extract(ctx context.Context, document []byte, mimeType, filename string) (Fields, error)
}

// Failure is the typed outcome of an extraction call that could not
// produce fields. It wraps a sentinel so callers can distinguish timeouts
// from outages while still treating both as "extraction unavailable".
type Failure struct {
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", f.Reason, f.Err)
	}
	return "extraction failed: " + f.Reason
}

func (f *Failure) Unwrap() error {
	if f.Err != nil {
		return f.Err
	}
	return sentinel.ErrUnavailable
}
