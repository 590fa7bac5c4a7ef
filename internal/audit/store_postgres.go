package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore persists the trail in PostgreSQL. Inserts are idempotent on
// entry ID so a retried write never duplicates an audit record.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS verification_logs (
	id            UUID PRIMARY KEY,
	action        TEXT NOT NULL,
	subject_id    TEXT NOT NULL DEFAULT '',
	actor         TEXT NOT NULL DEFAULT '',
	request_id    TEXT NOT NULL DEFAULT '',
	client_ip     TEXT NOT NULL DEFAULT '',
	verdict       TEXT NOT NULL DEFAULT '',
	reasons       TEXT[] NOT NULL DEFAULT '{}',
	extracted     JSONB NOT NULL DEFAULT '{}',
	computed_hash TEXT NOT NULL DEFAULT '',
	ledger_check  TEXT NOT NULL DEFAULT '',
	requested_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS verification_logs_subject_idx
	ON verification_logs (subject_id, requested_at DESC)`

// Migrate creates the verification_logs table when absent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate verification_logs: %w", err)
	}
	return nil
}

const selectColumns = `id, action, subject_id, actor, request_id, client_ip, verdict,
	reasons, extracted, computed_hash, ledger_check, requested_at`

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	extracted, err := json.Marshal(entry.Extracted)
	if err != nil {
		return fmt.Errorf("marshal extracted snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verification_logs (
			id, action, subject_id, actor, request_id, client_ip, verdict,
			reasons, extracted, computed_hash, ledger_check, requested_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		entry.ID, string(entry.Action), entry.SubjectID, entry.Actor, entry.RequestID,
		entry.ClientIP, entry.Verdict, pq.Array(entry.Reasons), extracted,
		entry.ComputedHash, string(entry.LedgerCheck), entry.RequestedAt)
	if err != nil {
		return fmt.Errorf("insert verification log: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]Entry, int64, error) {
	filter = normalizeFilter(filter)
	offset := (filter.Page - 1) * filter.Limit

	// Placeholders $1 and $2 are reserved for LIMIT/OFFSET in the paged
	// query; the count fallback numbers its own from $1.
	where, filterArgs := buildWhere(filter, 3)
	args := append([]any{filter.Limit, offset}, filterArgs...)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+`, COUNT(*) OVER() AS total
		 FROM verification_logs `+where+`
		 ORDER BY requested_at DESC, id
		 LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list verification logs: %w", err)
	}
	defer rows.Close()

	var (
		entries []Entry
		total   int64
	)
	for rows.Next() {
		var (
			e         Entry
			extracted []byte
			reasons   pq.StringArray
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.SubjectID, &e.Actor, &e.RequestID,
			&e.ClientIP, &e.Verdict, &reasons, &extracted, &e.ComputedHash,
			&e.LedgerCheck, &e.RequestedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan verification log: %w", err)
		}
		e.Reasons = []string(reasons)
		if err := json.Unmarshal(extracted, &e.Extracted); err != nil {
			return nil, 0, fmt.Errorf("unmarshal extracted snapshot: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list verification logs: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
		// The window total is lost when the page is empty; fetch it directly.
		countWhere, countArgs := buildWhere(filter, 1)
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM verification_logs `+countWhere, countArgs...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count verification logs: %w", err)
		}
	}
	return entries, total, nil
}

func (s *PostgresStore) VerificationStats(ctx context.Context, since, trendStart time.Time) (VerificationStats, error) {
	stats := VerificationStats{Daily: make(map[string]int64)}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE requested_at >= $2),
			COUNT(*) FILTER (WHERE requested_at >= $2 AND verdict = 'Valid')
		FROM verification_logs
		WHERE action = $1`,
		string(ActionCertificateVerified), since).
		Scan(&stats.Total, &stats.Recent, &stats.RecentValid)
	if err != nil {
		return VerificationStats{}, fmt.Errorf("aggregate verification logs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(requested_at AT TIME ZONE 'UTC', 'YYYY-MM-DD'), COUNT(*)
		FROM verification_logs
		WHERE action = $1 AND requested_at >= $2
		GROUP BY 1`,
		string(ActionCertificateVerified), trendStart)
	if err != nil {
		return VerificationStats{}, fmt.Errorf("verification trend: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			day   string
			count int64
		)
		if err := rows.Scan(&day, &count); err != nil {
			return VerificationStats{}, fmt.Errorf("scan trend row: %w", err)
		}
		stats.Daily[day] = count
	}
	if err := rows.Err(); err != nil {
		return VerificationStats{}, fmt.Errorf("verification trend: %w", err)
	}
	return stats, nil
}

func buildWhere(filter ListFilter, firstPlaceholder int) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.SubjectID != "" {
		clauses = append(clauses, fmt.Sprintf("subject_id = $%d", firstPlaceholder+len(args)))
		args = append(args, filter.SubjectID)
	}
	if filter.Action != "" {
		clauses = append(clauses, fmt.Sprintf("action = $%d", firstPlaceholder+len(args)))
		args = append(args, string(filter.Action))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}
