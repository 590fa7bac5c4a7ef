package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"certledger/internal/audit"
	"certledger/internal/certificate/hash"
	"certledger/internal/certificate/store"
	"certledger/internal/extraction"
	"certledger/internal/ledger"
	"certledger/pkg/platform/sentinel"
	"certledger/pkg/requestcontext"
)

// Entry paths, used as a metric label.
const (
	pathDocument   = "document"
	pathIdentifier = "identifier"
)

// Service runs the verdict state machine. Each request makes at most one
// extraction call and at most one ledger verify, and appends exactly one
// audit entry whatever the outcome.
type Service struct {
	extractor extraction.Client
	records   store.Store
	ledger    ledger.Client
	trail     *audit.Recorder
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
}

func NewService(
	extractor extraction.Client,
	records store.Store,
	ledgerClient ledger.Client,
	trail *audit.Recorder,
	logger *slog.Logger,
	metrics *Metrics,
) *Service {
	return &Service{
		extractor: extractor,
		records:   records,
		ledger:    ledgerClient,
		trail:     trail,
		logger:    logger,
		metrics:   metrics,
		tracer:    otel.Tracer("certledger/internal/verification"),
	}
}

// VerifyDocument resolves the subject from an uploaded document, then runs
// the shared verdict path.
func (s *Service) VerifyDocument(ctx context.Context, document []byte, mimeType, filename string) (Result, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "verification.VerifyDocument",
		trace.WithAttributes(attribute.String("document.filename", filename)))
	defer span.End()
	defer func() { s.metrics.ObserveVerifyLatency(time.Since(started)) }()

	extractStart := time.Now()
	fields, err := s.extractor.Extract(ctx, document, mimeType, filename)
	s.metrics.ObserveSourceLatency("extraction", time.Since(extractStart))
	if err != nil {
		s.logger.Warn("extraction failed", "error", err, "filename", filename)
		return s.conclude(ctx, pathDocument, "", fields, decideFailure(ReasonExtractionUnavailable), nil, ""), nil
	}

	subject := strings.TrimSpace(fields.Roll)
	if subject == "" {
		// Some extraction backends only read the printed certificate ID.
		subject = strings.TrimSpace(fields.CertID)
	}
	if subject == "" {
		return s.conclude(ctx, pathDocument, "", fields, decideFailure(ReasonIdentifierMissing), nil, ""), nil
	}
	span.SetAttributes(attribute.String("certificate.roll_number", subject))

	return s.verify(ctx, pathDocument, subject, fields)
}

// VerifyByRollNumber skips extraction: the caller already knows the subject.
// With no extracted fields there is nothing to reconcile, so the verdict
// rests on the blacklist flag and the ledger check alone.
func (s *Service) VerifyByRollNumber(ctx context.Context, rollNumber string) (Result, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "verification.VerifyByRollNumber",
		trace.WithAttributes(attribute.String("certificate.roll_number", rollNumber)))
	defer span.End()
	defer func() { s.metrics.ObserveVerifyLatency(time.Since(started)) }()

	subject := strings.TrimSpace(rollNumber)
	if subject == "" {
		return s.conclude(ctx, pathIdentifier, "", extraction.Fields{}, decideFailure(ReasonIdentifierMissing), nil, ""), nil
	}
	return s.verify(ctx, pathIdentifier, subject, extraction.Fields{})
}

// verify is the shared tail of the state machine: lookup, blacklist
// short-circuit, reconcile, integrity check.
func (s *Service) verify(ctx context.Context, path, subject string, fields extraction.Fields) (Result, error) {
	now := requestcontext.Now(ctx)

	lookupStart := time.Now()
	rec, err := s.records.FindByRollNumber(ctx, subject)
	s.metrics.ObserveSourceLatency("lookup", time.Since(lookupStart))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.conclude(ctx, path, subject, fields, decideFailure(ReasonRecordNotFound), nil, ""), nil
		}
		// One entry per call holds on infrastructure failures too.
		s.trail.RecordOrLog(ctx, audit.Entry{
			Action:      audit.ActionCertificateVerified,
			SubjectID:   subject,
			Verdict:     "Error",
			Reasons:     []string{"record lookup failed"},
			Extracted:   snapshotFields(fields),
			LedgerCheck: audit.LedgerCheckSkipped,
		})
		return Result{}, fmt.Errorf("find certificate %q: %w", subject, err)
	}

	// The counter tracks attempts against the record, not positive
	// verdicts; bump on every successful lookup.
	if err := s.records.RecordVerification(ctx, subject, now); err != nil {
		s.logger.Error("record verification bump failed", "error", err, "roll_number", subject)
	}

	decision, needLedger := decideRecord(rec, Reconcile(fields, rec))
	if !needLedger {
		return s.conclude(ctx, path, subject, fields, decision, snapshotView(rec, now, nil), ""), nil
	}

	computed := hash.Compute(rec)
	ledgerStart := time.Now()
	outcome := s.ledger.Verify(ctx, subject, computed)
	s.metrics.ObserveSourceLatency("ledger", time.Since(ledgerStart))

	decision = decideLedger(outcome)
	var ledgerVerified *bool
	switch outcome {
	case ledger.OutcomeVerified:
		v := true
		ledgerVerified = &v
	case ledger.OutcomeMismatch:
		v := false
		ledgerVerified = &v
	}
	return s.conclude(ctx, path, subject, fields, decision, snapshotView(rec, now, ledgerVerified), computed), nil
}

// conclude is the single exit point for terminal outcomes: it appends the
// audit entry, bumps the verdict metric, and shapes the envelope.
func (s *Service) conclude(
	ctx context.Context,
	path, subject string,
	fields extraction.Fields,
	decision Decision,
	view *CertificateView,
	computedHash string,
) Result {
	s.trail.RecordOrLog(ctx, audit.Entry{
		Action:       audit.ActionCertificateVerified,
		SubjectID:    subject,
		Verdict:      string(decision.Status),
		Reasons:      decision.Reasons,
		Extracted:    snapshotFields(fields),
		ComputedHash: computedHash,
		LedgerCheck:  decision.LedgerCheck,
	})
	s.metrics.IncrementVerdict(string(decision.Status), path)
	s.logger.Info("verification concluded",
		"roll_number", subject,
		"verdict", decision.Status,
		"ledger_check", decision.LedgerCheck,
		"path", path)

	return Result{
		Status:      decision.Status,
		Reasons:     decision.Reasons,
		Certificate: view,
	}
}

func snapshotFields(fields extraction.Fields) audit.ExtractedSnapshot {
	return audit.ExtractedSnapshot{
		CertID: fields.CertID,
		Name:   fields.Name,
		Roll:   fields.Roll,
		Course: fields.Course,
	}
}
