package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"certledger/pkg/platform/middleware/metadata"
	"certledger/pkg/requestcontext"
)

// Sink receives entries after they are persisted. Implementations must not
// block; delivery is best-effort.
type Sink interface {
	Publish(ctx context.Context, entry Entry)
}

// Recorder captures structured audit entries. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Recorder struct {
	store  Store
	sink   Sink
	logger *slog.Logger
}

// NewRecorder wires a trail store and an optional streaming sink. Pass a nil
// sink when no broker is configured.
func NewRecorder(store Store, sink Sink, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, sink: sink, logger: logger}
}

// Record assigns identity and timing, persists the entry, then streams it.
// The persisted trail is authoritative; a sink failure never surfaces.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.RequestedAt.IsZero() {
		entry.RequestedAt = requestcontext.Now(ctx)
	}
	if entry.Actor == "" {
		entry.Actor = requestcontext.Actor(ctx)
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}
	if entry.ClientIP == "" {
		entry.ClientIP = metadata.GetClientIP(ctx)
	}
	if err := r.store.Append(ctx, entry); err != nil {
		return err
	}
	if r.sink != nil {
		r.sink.Publish(ctx, entry)
	}
	return nil
}

// List exposes the trail for the log-inspection endpoint.
func (r *Recorder) List(ctx context.Context, filter ListFilter) ([]Entry, int64, error) {
	return r.store.List(ctx, filter)
}

// RecordOrLog is for call sites where the surrounding operation must not
// fail on a trail write error (the verification path). The error is logged
// with enough context to reconstruct the lost entry.
func (r *Recorder) RecordOrLog(ctx context.Context, entry Entry) {
	if err := r.Record(ctx, entry); err != nil {
		r.logger.Error("audit append failed",
			"error", err,
			"action", entry.Action,
			"subject_id", entry.SubjectID,
			"verdict", entry.Verdict,
			"requested_at", entry.RequestedAt.Format(time.RFC3339Nano))
	}
}
