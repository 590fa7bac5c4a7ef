//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certledger/internal/certificate/models"
	"certledger/internal/certificate/store"
	"certledger/pkg/platform/sentinel"
	"certledger/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.postgres.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "certificates"))
}

func newTestRecord(roll string) models.CertificateRecord {
	return models.CertificateRecord{
		RollNumber:  roll,
		StudentName: "Alice",
		CourseName:  "CS",
		Institution: "Example University",
		IssueDate:   time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
		Grade:       "A",
	}
}

func (s *PostgresStoreSuite) TestUpsertClassifiesInsertAndUpdate() {
	ctx := context.Background()

	res, err := s.store.Upsert(ctx, newTestRecord("R1"))
	s.Require().NoError(err)
	s.True(res.WasInsert)

	update := newTestRecord("R1")
	update.Grade = "B"
	res, err = s.store.Upsert(ctx, update)
	s.Require().NoError(err)
	s.False(res.WasInsert)
	s.Equal("B", res.Record.Grade)
}

func (s *PostgresStoreSuite) TestUpsertKeepsPersistedFieldsOnEmptyInput() {
	ctx := context.Background()

	_, err := s.store.Upsert(ctx, newTestRecord("R1"))
	s.Require().NoError(err)

	res, err := s.store.Upsert(ctx, models.CertificateRecord{RollNumber: "R1", StudentName: "Alicia"})
	s.Require().NoError(err)
	s.Equal("Alicia", res.Record.StudentName)
	s.Equal("CS", res.Record.CourseName)
	s.Equal("A", res.Record.Grade)
	s.False(res.Record.IssueDate.IsZero())
}

func (s *PostgresStoreSuite) TestIssueDateDefaultsOnInsertOnly() {
	ctx := context.Background()

	rec := newTestRecord("R1")
	rec.IssueDate = time.Time{}
	res, err := s.store.Upsert(ctx, rec)
	s.Require().NoError(err)
	s.Require().True(res.WasInsert)
	s.False(res.Record.IssueDate.IsZero(), "missing issue date is stamped on insert")

	stamped := res.Record.IssueDate
	res, err = s.store.Upsert(ctx, models.CertificateRecord{RollNumber: "R1", Grade: "B"})
	s.Require().NoError(err)
	s.Require().False(res.WasInsert)
	s.True(res.Record.IssueDate.Equal(stamped), "an update without a date must not restamp the stored one")
}

func (s *PostgresStoreSuite) TestRecordVerificationIsAtomic() {
	ctx := context.Background()

	_, err := s.store.Upsert(ctx, newTestRecord("R1"))
	s.Require().NoError(err)

	const n = 20
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			done <- s.store.RecordVerification(ctx, "R1", time.Now())
		}()
	}
	for i := 0; i < n; i++ {
		s.Require().NoError(<-done)
	}

	rec, err := s.store.FindByRollNumber(ctx, "R1")
	s.Require().NoError(err)
	s.EqualValues(n, rec.VerificationCount)
	s.NotNil(rec.LastVerifiedAt)
}

func (s *PostgresStoreSuite) TestNotFoundPaths() {
	ctx := context.Background()

	_, err := s.store.FindByRollNumber(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.RecordVerification(ctx, "missing", time.Now()), sentinel.ErrNotFound)
	s.ErrorIs(s.store.SetBlacklisted(ctx, "missing", true), sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(ctx, "missing"), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestStats() {
	ctx := context.Background()

	for _, roll := range []string{"R1", "R2", "R3"} {
		_, err := s.store.Upsert(ctx, newTestRecord(roll))
		s.Require().NoError(err)
	}
	other := newTestRecord("R4")
	other.Institution = "Tech Institute"
	_, err := s.store.Upsert(ctx, other)
	s.Require().NoError(err)
	s.Require().NoError(s.store.SetBlacklisted(ctx, "R2", true))

	stats, err := s.store.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(4, stats.Total)
	s.Equal(1, stats.Blacklisted)
	s.Equal(map[string]int{"Example University": 3, "Tech Institute": 1}, stats.ByInstitution)
}

func (s *PostgresStoreSuite) TestListPaginationAndFilter() {
	ctx := context.Background()

	for _, roll := range []string{"R1", "R2", "R3"} {
		_, err := s.store.Upsert(ctx, newTestRecord(roll))
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.SetBlacklisted(ctx, "R2", true))

	page, total, err := s.store.List(ctx, store.ListFilter{Page: 1, Limit: 2})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Len(page, 2)

	flagged := true
	page, total, err = s.store.List(ctx, store.ListFilter{Page: 1, Limit: 10, Blacklisted: &flagged})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(page, 1)
	s.Equal("R2", page[0].RollNumber)
}
