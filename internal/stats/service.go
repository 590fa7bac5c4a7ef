// Package stats assembles the admin dashboard: certificate counts from the
// record store joined with verification volume from the audit trail.
package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"certledger/internal/audit"
	"certledger/internal/certificate/store"
	"certledger/pkg/requestcontext"
)

const (
	recentWindow    = 30 * 24 * time.Hour
	trendDays       = 7
	topInstitutions = 5
)

// Records is the aggregate surface the dashboard reads from the
// certificate store.
type Records interface {
	Stats(ctx context.Context) (store.Stats, error)
}

// Trail is the aggregate surface the dashboard reads from the audit trail.
type Trail interface {
	VerificationStats(ctx context.Context, since, trendStart time.Time) (audit.VerificationStats, error)
}

// Overview is the headline counter block.
type Overview struct {
	TotalCertificates       int     `json:"totalCertificates"`
	TotalVerifications      int64   `json:"totalVerifications"`
	BlacklistedCertificates int     `json:"blacklistedCertificates"`
	RecentVerifications     int64   `json:"recentVerifications"`
	SuccessRate             float64 `json:"successRate"`
}

// TrendPoint is one day of verification volume.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// InstitutionCount ranks one institution by stored certificates.
type InstitutionCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Dashboard is the full stats payload.
type Dashboard struct {
	Overview        Overview           `json:"overview"`
	Trends          []TrendPoint       `json:"trends"`
	TopInstitutions []InstitutionCount `json:"topInstitutions"`
}

// Service computes dashboards on demand; nothing is cached or
// precomputed, both stores aggregate in a single pass.
type Service struct {
	records Records
	trail   Trail
}

func NewService(records Records, trail Trail) *Service {
	return &Service{records: records, trail: trail}
}

// Dashboard builds the admin overview. Recent counters cover a rolling 30
// days; the trend covers the last 7 calendar days (UTC) including today.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	now := requestcontext.Now(ctx).UTC()
	since := now.Add(-recentWindow)
	firstDay := now.AddDate(0, 0, -(trendDays - 1))
	trendStart := time.Date(firstDay.Year(), firstDay.Month(), firstDay.Day(), 0, 0, 0, 0, time.UTC)

	records, err := s.records.Stats(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("certificate stats: %w", err)
	}
	verifications, err := s.trail.VerificationStats(ctx, since, trendStart)
	if err != nil {
		return Dashboard{}, fmt.Errorf("verification stats: %w", err)
	}

	rate := 0.0
	if verifications.Recent > 0 {
		rate = math.Round(float64(verifications.RecentValid)/float64(verifications.Recent)*10000) / 100
	}

	trends := make([]TrendPoint, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format(time.DateOnly)
		trends = append(trends, TrendPoint{Date: day, Count: verifications.Daily[day]})
	}

	top := make([]InstitutionCount, 0, len(records.ByInstitution))
	for name, count := range records.ByInstitution {
		if name == "" {
			name = "Unknown"
		}
		top = append(top, InstitutionCount{Name: name, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > topInstitutions {
		top = top[:topInstitutions]
	}

	return Dashboard{
		Overview: Overview{
			TotalCertificates:       records.Total,
			TotalVerifications:      verifications.Total,
			BlacklistedCertificates: records.Blacklisted,
			RecentVerifications:     verifications.Recent,
			SuccessRate:             rate,
		},
		Trends:          trends,
		TopInstitutions: top,
	}, nil
}
