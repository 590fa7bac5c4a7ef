package audit

import (
	"context"
	"time"
)

// ListFilter narrows and pages a trail listing. Zero values mean defaults.
type ListFilter struct {
	SubjectID string
	Action    Action
	Page      int
	Limit     int
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

// VerificationStats aggregates certificate_verified entries for the admin
// dashboard. Recent covers entries at or after the since cutoff;
// RecentValid is the Valid-verdict share of those. Daily buckets counts by
// UTC date for entries at or after the trend cutoff.
type VerificationStats struct {
	Total       int64
	Recent      int64
	RecentValid int64
	Daily       map[string]int64
}

// Store persists audit entries. Implementations must honor append-only
// semantics: no update or delete surface is exposed.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	// List returns entries newest first, plus the total count matching
	// the filter before paging.
	List(ctx context.Context, filter ListFilter) ([]Entry, int64, error)
	// VerificationStats aggregates verification entries for dashboards.
	VerificationStats(ctx context.Context, since, trendStart time.Time) (VerificationStats, error)
}

func normalizeFilter(f ListFilter) ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	return f
}
