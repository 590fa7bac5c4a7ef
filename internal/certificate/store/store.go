// Package store abstracts the certificate system-of-record. Two
// implementations exist: an in-memory store for unit tests and dev mode,
// and a Postgres store for real deployments. Both enforce the same upsert
// semantics: partial update by natural key, store-managed verification
// fields, key-scoped atomicity.
package store

import (
	"context"
	"time"

	"certledger/internal/certificate/models"
)

// UpsertResult reports the persisted record and whether the operation
// created it.
type UpsertResult struct {
	Record    models.CertificateRecord
	WasInsert bool
}

// ListFilter selects a page of records, optionally filtered by blacklist
// status.
type ListFilter struct {
	Page        int
	Limit       int
	Blacklisted *bool
}

// Stats aggregates record counts for the admin dashboard.
type Stats struct {
	Total         int
	Blacklisted   int
	ByInstitution map[string]int
}

// Store is the record-store contract. Implementations return
// sentinel.ErrNotFound when the natural key is absent.
type Store interface {
	FindByRollNumber(ctx context.Context, rollNumber string) (models.CertificateRecord, error)

	// Upsert inserts or partially updates by roll number. Empty incoming
	// fields never overwrite persisted values. Verification fields are
	// ignored on the incoming record.
	Upsert(ctx context.Context, rec models.CertificateRecord) (UpsertResult, error)

	// RecordVerification atomically bumps the verification counter and
	// stamps the verification time. The increment happens store-side so
	// concurrent verifications never lose counts.
	RecordVerification(ctx context.Context, rollNumber string, at time.Time) error

	SetBlacklisted(ctx context.Context, rollNumber string, blacklisted bool) error

	Delete(ctx context.Context, rollNumber string) error

	// List returns a page of records plus the total count.
	List(ctx context.Context, filter ListFilter) ([]models.CertificateRecord, int, error)

	// Stats aggregates totals, blacklist count, and per-institution counts.
	Stats(ctx context.Context) (Stats, error)
}

func normalizeFilter(filter ListFilter) ListFilter {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 10
	}
	return filter
}
