package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"certledger/internal/certificate/models"
	"certledger/pkg/platform/sentinel"
)

// Postgres persists certificates in PostgreSQL. All mutations are single
// statements scoped to one roll number, so no caller-side locking or
// multi-key transactions are needed.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed certificate store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS certificates (
	roll_number        TEXT PRIMARY KEY,
	student_name       TEXT NOT NULL,
	course_name        TEXT NOT NULL,
	institution        TEXT NOT NULL DEFAULT '',
	issue_date         TIMESTAMPTZ,
	grade              TEXT NOT NULL DEFAULT '',
	blacklisted        BOOLEAN NOT NULL DEFAULT FALSE,
	last_verified_at   TIMESTAMPTZ,
	verification_count BIGINT NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migrate creates the certificates table when absent.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate certificates: %w", err)
	}
	return nil
}

const selectColumns = `roll_number, student_name, course_name, institution, issue_date, grade,
	blacklisted, last_verified_at, verification_count, created_at, updated_at`

func (s *Postgres) FindByRollNumber(ctx context.Context, rollNumber string) (models.CertificateRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM certificates WHERE roll_number = $1`, rollNumber)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CertificateRecord{}, sentinel.ErrNotFound
		}
		return models.CertificateRecord{}, fmt.Errorf("find certificate: %w", err)
	}
	return rec, nil
}

// Upsert inserts or partially updates in a single statement. NULLIF keeps
// empty incoming fields from blanking persisted values; a missing issue
// date defaults to now() on insert only, so re-uploads without one never
// move a persisted date. xmax = 0 is true only for freshly inserted rows,
// which classifies insert vs update without a second round trip.
func (s *Postgres) Upsert(ctx context.Context, rec models.CertificateRecord) (UpsertResult, error) {
	var issueDate sql.NullTime
	if !rec.IssueDate.IsZero() {
		issueDate = sql.NullTime{Time: rec.IssueDate, Valid: true}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO certificates (roll_number, student_name, course_name, institution, issue_date, grade)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()), $6)
		ON CONFLICT (roll_number) DO UPDATE SET
			student_name = COALESCE(NULLIF(EXCLUDED.student_name, ''), certificates.student_name),
			course_name  = COALESCE(NULLIF(EXCLUDED.course_name, ''), certificates.course_name),
			institution  = COALESCE(NULLIF(EXCLUDED.institution, ''), certificates.institution),
			issue_date   = COALESCE($5, certificates.issue_date),
			grade        = COALESCE(NULLIF(EXCLUDED.grade, ''), certificates.grade),
			updated_at   = now()
		RETURNING `+selectColumns+`, (xmax = 0) AS was_insert`,
		rec.RollNumber, rec.StudentName, rec.CourseName, rec.Institution, issueDate, rec.Grade)

	var (
		stored    models.CertificateRecord
		lastVer   sql.NullTime
		issued    sql.NullTime
		wasInsert bool
	)
	err := row.Scan(&stored.RollNumber, &stored.StudentName, &stored.CourseName, &stored.Institution,
		&issued, &stored.Grade, &stored.Blacklisted, &lastVer, &stored.VerificationCount,
		&stored.CreatedAt, &stored.UpdatedAt, &wasInsert)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert certificate: %w", err)
	}
	if issued.Valid {
		stored.IssueDate = issued.Time
	}
	if lastVer.Valid {
		t := lastVer.Time
		stored.LastVerifiedAt = &t
	}
	return UpsertResult{Record: stored, WasInsert: wasInsert}, nil
}

func (s *Postgres) RecordVerification(ctx context.Context, rollNumber string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE certificates
		SET verification_count = verification_count + 1,
			last_verified_at = $2
		WHERE roll_number = $1`, rollNumber, at)
	if err != nil {
		return fmt.Errorf("record verification: %w", err)
	}
	return requireAffected(res)
}

func (s *Postgres) SetBlacklisted(ctx context.Context, rollNumber string, blacklisted bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE certificates SET blacklisted = $2, updated_at = now()
		WHERE roll_number = $1`, rollNumber, blacklisted)
	if err != nil {
		return fmt.Errorf("set blacklisted: %w", err)
	}
	return requireAffected(res)
}

func (s *Postgres) Delete(ctx context.Context, rollNumber string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM certificates WHERE roll_number = $1`, rollNumber)
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	return requireAffected(res)
}

func (s *Postgres) List(ctx context.Context, filter ListFilter) ([]models.CertificateRecord, int, error) {
	filter = normalizeFilter(filter)
	offset := (filter.Page - 1) * filter.Limit

	where := ""
	args := []any{filter.Limit, offset}
	if filter.Blacklisted != nil {
		where = "WHERE blacklisted = $3"
		args = append(args, *filter.Blacklisted)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+`, COUNT(*) OVER() AS total
		 FROM certificates `+where+`
		 ORDER BY created_at DESC, roll_number
		 LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var (
		records []models.CertificateRecord
		total   int
	)
	for rows.Next() {
		var (
			rec     models.CertificateRecord
			issued  sql.NullTime
			lastVer sql.NullTime
		)
		if err := rows.Scan(&rec.RollNumber, &rec.StudentName, &rec.CourseName, &rec.Institution,
			&issued, &rec.Grade, &rec.Blacklisted, &lastVer, &rec.VerificationCount,
			&rec.CreatedAt, &rec.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan certificate: %w", err)
		}
		if issued.Valid {
			rec.IssueDate = issued.Time
		}
		if lastVer.Valid {
			t := lastVer.Time
			rec.LastVerifiedAt = &t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list certificates: %w", err)
	}
	if records == nil {
		records = []models.CertificateRecord{}
		// The window total is lost when the page is empty; fetch it directly.
		countWhere := ""
		countArgs := []any{}
		if filter.Blacklisted != nil {
			countWhere = "WHERE blacklisted = $1"
			countArgs = append(countArgs, *filter.Blacklisted)
		}
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM certificates `+countWhere, countArgs...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count certificates: %w", err)
		}
	}
	return records, total, nil
}

// Stats aggregates in one grouped scan; totals are summed client-side from
// the per-institution rows.
func (s *Postgres) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT institution, COUNT(*), COUNT(*) FILTER (WHERE blacklisted)
		FROM certificates
		GROUP BY institution`)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate certificates: %w", err)
	}
	defer rows.Close()

	stats := Stats{ByInstitution: make(map[string]int)}
	for rows.Next() {
		var (
			institution    string
			count, flagged int
		)
		if err := rows.Scan(&institution, &count, &flagged); err != nil {
			return Stats{}, fmt.Errorf("scan institution row: %w", err)
		}
		stats.Total += count
		stats.Blacklisted += flagged
		stats.ByInstitution[institution] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("aggregate certificates: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.CertificateRecord, error) {
	var (
		rec     models.CertificateRecord
		issued  sql.NullTime
		lastVer sql.NullTime
	)
	err := row.Scan(&rec.RollNumber, &rec.StudentName, &rec.CourseName, &rec.Institution,
		&issued, &rec.Grade, &rec.Blacklisted, &lastVer, &rec.VerificationCount,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return models.CertificateRecord{}, err
	}
	if issued.Valid {
		rec.IssueDate = issued.Time
	}
	if lastVer.Valid {
		t := lastVer.Time
		rec.LastVerifiedAt = &t
	}
	return rec, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
