package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"certledger/internal/certificate/models"
	"certledger/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded map store. Used by unit tests and dev mode;
// it mirrors the Postgres store's semantics exactly so services behave the
// same against either.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]models.CertificateRecord
	clock   func() time.Time
}

// InMemoryOption configures an InMemory store.
type InMemoryOption func(*InMemory)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) InMemoryOption {
	return func(s *InMemory) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	s := &InMemory{
		records: make(map[string]models.CertificateRecord),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) FindByRollNumber(_ context.Context, rollNumber string) (models.CertificateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[rollNumber]
	if !ok {
		return models.CertificateRecord{}, sentinel.ErrNotFound
	}
	return rec, nil
}

func (s *InMemory) Upsert(_ context.Context, incoming models.CertificateRecord) (UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	existing, ok := s.records[incoming.RollNumber]
	if !ok {
		if incoming.IssueDate.IsZero() {
			incoming.IssueDate = now
		}
		incoming.VerificationCount = 0
		incoming.LastVerifiedAt = nil
		incoming.CreatedAt = now
		incoming.UpdatedAt = now
		s.records[incoming.RollNumber] = incoming
		return UpsertResult{Record: incoming, WasInsert: true}, nil
	}

	existing.Merge(incoming)
	existing.UpdatedAt = now
	s.records[incoming.RollNumber] = existing
	return UpsertResult{Record: existing, WasInsert: false}, nil
}

func (s *InMemory) RecordVerification(_ context.Context, rollNumber string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[rollNumber]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.VerificationCount++
	rec.LastVerifiedAt = &at
	s.records[rollNumber] = rec
	return nil
}

func (s *InMemory) SetBlacklisted(_ context.Context, rollNumber string, blacklisted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[rollNumber]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.Blacklisted = blacklisted
	rec.UpdatedAt = s.clock()
	s.records[rollNumber] = rec
	return nil
}

func (s *InMemory) Delete(_ context.Context, rollNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rollNumber]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, rollNumber)
	return nil
}

func (s *InMemory) List(_ context.Context, filter ListFilter) ([]models.CertificateRecord, int, error) {
	filter = normalizeFilter(filter)

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.CertificateRecord, 0, len(s.records))
	for _, rec := range s.records {
		if filter.Blacklisted != nil && rec.Blacklisted != *filter.Blacklisted {
			continue
		}
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].RollNumber < all[j].RollNumber
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	offset := (filter.Page - 1) * filter.Limit
	if offset >= total {
		return []models.CertificateRecord{}, total, nil
	}
	end := offset + filter.Limit
	if end > total {
		end = total
	}
	return append([]models.CertificateRecord{}, all[offset:end]...), total, nil
}

func (s *InMemory) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{ByInstitution: make(map[string]int)}
	for _, rec := range s.records {
		stats.Total++
		if rec.Blacklisted {
			stats.Blacklisted++
		}
		stats.ByInstitution[rec.Institution]++
	}
	return stats, nil
}
