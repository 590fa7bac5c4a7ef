package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps the trail in process memory. Used in tests and when
// the service runs without a database.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]Entry, int64, error) {
	filter = normalizeFilter(filter)

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Entry, 0, len(s.entries))
	// Walk backwards so the newest entries come first.
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if filter.SubjectID != "" && e.SubjectID != filter.SubjectID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		matched = append(matched, e)
	}

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return []Entry{}, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return append([]Entry{}, matched[start:end]...), total, nil
}

func (s *InMemoryStore) VerificationStats(_ context.Context, since, trendStart time.Time) (VerificationStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := VerificationStats{Daily: make(map[string]int64)}
	for _, e := range s.entries {
		if e.Action != ActionCertificateVerified {
			continue
		}
		stats.Total++
		if !e.RequestedAt.Before(since) {
			stats.Recent++
			if e.Verdict == "Valid" {
				stats.RecentValid++
			}
		}
		if !e.RequestedAt.Before(trendStart) {
			stats.Daily[e.RequestedAt.UTC().Format(time.DateOnly)]++
		}
	}
	return stats, nil
}

// Clear resets the trail between tests.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
