// Package service implements certificate record management: registration,
// listing, administrative delete, and the blacklist switch.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"certledger/internal/audit"
	"certledger/internal/certificate/hash"
	"certledger/internal/certificate/models"
	"certledger/internal/certificate/store"
	"certledger/internal/ledger"
	"certledger/internal/ledger/anchor"
)

// Service owns single-record operations. Bulk registration lives in the
// ingestion pipeline; both share the store and the anchor dispatcher.
type Service struct {
	records store.Store
	anchors *anchor.Dispatcher
	trail   *audit.Recorder
	logger  *slog.Logger
}

func New(records store.Store, anchors *anchor.Dispatcher, trail *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{records: records, anchors: anchors, trail: trail, logger: logger}
}

// Register persists one certificate and enqueues its anchor. Registration
// shares upsert semantics with bulk ingestion: re-registering a known roll
// number updates the record instead of failing.
func (s *Service) Register(ctx context.Context, rec models.CertificateRecord, issuer string) (store.UpsertResult, error) {
	res, err := s.records.Upsert(ctx, rec)
	if err != nil {
		return store.UpsertResult{}, fmt.Errorf("register certificate: %w", err)
	}

	if !s.anchors.Enqueue(ledger.AnchorRequest{
		RollNumber: res.Record.RollNumber,
		Hash:       hash.Compute(res.Record),
		Issuer:     issuer,
	}) {
		s.logger.Warn("anchor enqueue rejected", "roll_number", res.Record.RollNumber)
	}

	s.logger.Info("certificate registered",
		"roll_number", res.Record.RollNumber,
		"inserted", res.WasInsert)
	return res, nil
}

func (s *Service) Get(ctx context.Context, rollNumber string) (models.CertificateRecord, error) {
	return s.records.FindByRollNumber(ctx, rollNumber)
}

func (s *Service) List(ctx context.Context, filter store.ListFilter) ([]models.CertificateRecord, int, error) {
	return s.records.List(ctx, filter)
}

// Delete removes a record. The verification path never deletes; this is an
// administrative action and the audit trail keeps a tombstone entry.
func (s *Service) Delete(ctx context.Context, rollNumber string) error {
	if err := s.records.Delete(ctx, rollNumber); err != nil {
		return err
	}
	s.trail.RecordOrLog(ctx, audit.Entry{
		Action:      audit.ActionCertificateDeleted,
		SubjectID:   rollNumber,
		LedgerCheck: audit.LedgerCheckSkipped,
	})
	return nil
}

// ToggleBlacklist flips the blacklist flag and records who did it and why.
// The flag is sticky: it stays until another explicit toggle.
func (s *Service) ToggleBlacklist(ctx context.Context, rollNumber string, blacklisted bool, reason string) (models.CertificateRecord, error) {
	if err := s.records.SetBlacklisted(ctx, rollNumber, blacklisted); err != nil {
		return models.CertificateRecord{}, err
	}

	verdict := "unblacklisted"
	if blacklisted {
		verdict = "blacklisted"
	}
	var reasons []string
	if reason != "" {
		reasons = []string{reason}
	}
	s.trail.RecordOrLog(ctx, audit.Entry{
		Action:      audit.ActionBlacklistToggled,
		SubjectID:   rollNumber,
		Verdict:     verdict,
		Reasons:     reasons,
		LedgerCheck: audit.LedgerCheckSkipped,
	})

	return s.records.FindByRollNumber(ctx, rollNumber)
}
