package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"certledger/internal/audit"
	"certledger/internal/certificate/hash"
	"certledger/internal/certificate/models"
	"certledger/internal/certificate/store"
	"certledger/internal/ledger"
	"certledger/internal/ledger/anchor"
	"certledger/pkg/platform/sentinel"
)

const defaultInstitution = "Default Institution"

// Issue dates arrive as full timestamps, calendar dates, or bare years
// depending on the registrar export.
var issueDateLayouts = []string{time.RFC3339, "2006-01-02", "2006"}

// Pipeline ingests one CSV batch: parse under a deadline, normalize
// heterogeneous headers, validate, upsert in file order, anchor each
// persisted record in the background.
type Pipeline struct {
	records      store.Store
	anchors      *anchor.Dispatcher
	trail        *audit.Recorder
	logger       *slog.Logger
	metrics      *Metrics
	parseTimeout time.Duration
	maxErrors    int
	tracer       trace.Tracer
}

func NewPipeline(
	records store.Store,
	anchors *anchor.Dispatcher,
	trail *audit.Recorder,
	logger *slog.Logger,
	metrics *Metrics,
	parseTimeout time.Duration,
	maxErrors int,
) *Pipeline {
	return &Pipeline{
		records:      records,
		anchors:      anchors,
		trail:        trail,
		logger:       logger,
		metrics:      metrics,
		parseTimeout: parseTimeout,
		maxErrors:    maxErrors,
		tracer:       otel.Tracer("certledger/internal/ingestion"),
	}
}

// row is one normalized data row, pre-validation.
type row struct {
	number      int
	roll        string
	name        string
	course      string
	grade       string
	institution string
	issued      string
}

// data shapes the normalized fields for per-row error reporting. Empty
// fields are omitted so the echo shows what the row actually carried.
func (r row) data() map[string]string {
	out := make(map[string]string, 6)
	for key, val := range map[string]string{
		"roll_number":  r.roll,
		"student_name": r.name,
		"course_name":  r.course,
		"grade":        r.grade,
		"institution":  r.institution,
		"issue_date":   r.issued,
	} {
		if val != "" {
			out[key] = val
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Ingest processes one batch. A returned error means the batch never ran
// (unreadable or timed-out parse); per-row failures land in the report
// instead and never abort later rows.
func (p *Pipeline) Ingest(ctx context.Context, r io.Reader, issuer string) (Report, error) {
	started := time.Now()
	ctx, span := p.tracer.Start(ctx, "ingestion.Ingest")
	defer span.End()
	defer func() { p.metrics.ObserveBatchLatency(time.Since(started)) }()

	rows, err := p.parse(ctx, r)
	if err != nil {
		return Report{}, err
	}
	span.SetAttributes(attribute.Int("ingestion.rows", len(rows)))

	report := Report{Summary: Summary{Total: len(rows)}}
	for _, rw := range rows {
		p.processRow(ctx, rw, issuer, &report)
	}

	p.metrics.AddRows("inserted", report.Summary.Inserted)
	p.metrics.AddRows("updated", report.Summary.Updated)
	p.metrics.AddRows("failed", report.Summary.Failed)
	p.trail.RecordOrLog(ctx, audit.Entry{
		Action:  audit.ActionBulkIngestion,
		Actor:   issuer,
		Verdict: "completed",
		Reasons: []string{fmt.Sprintf("total=%d inserted=%d updated=%d failed=%d",
			report.Summary.Total, report.Summary.Inserted, report.Summary.Updated, report.Summary.Failed)},
		LedgerCheck: audit.LedgerCheckSkipped,
	})
	p.logger.Info("bulk ingestion completed",
		"total", report.Summary.Total,
		"inserted", report.Summary.Inserted,
		"updated", report.Summary.Updated,
		"failed", report.Summary.Failed,
		"duration_ms", time.Since(started).Milliseconds())
	return report, nil
}

// parse reads the whole file under its own deadline. encoding/csv blocks on
// the reader, so the work runs in a goroutine and the deadline is enforced
// on the receiving side; a slow or endless upload yields a timeout error,
// never a hang.
func (p *Pipeline) parse(ctx context.Context, r io.Reader) ([]row, error) {
	ctx, cancel := context.WithTimeout(ctx, p.parseTimeout)
	defer cancel()

	type parseResult struct {
		rows []row
		err  error
	}
	done := make(chan parseResult, 1)
	go func() {
		rows, err := readRows(r)
		done <- parseResult{rows: rows, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("parse csv: %w", res.err)
		}
		return res.rows, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("csv parse exceeded %s: %w", p.parseTimeout, sentinel.ErrTimeout)
		}
		return nil, ctx.Err()
	}
}

func readRows(r io.Reader) ([]row, error) {
	reader := csv.NewReader(r)
	// Registrar exports are frequently ragged; ignore per-record field
	// counts and skip what cannot be keyed by header.
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []row
	number := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// A single mangled line must not sink the rest of the file.
			continue
		}
		if err != nil {
			return nil, err
		}
		number++

		keyed := make(map[string]string, len(header))
		for i, key := range header {
			if key == "" || i >= len(record) {
				continue
			}
			keyed[key] = strings.TrimSpace(record[i])
		}
		rows = append(rows, row{
			number:      number,
			roll:        mapField(keyed, rollAliases),
			name:        mapField(keyed, nameAliases),
			course:      mapField(keyed, courseAliases),
			grade:       mapField(keyed, gradeAliases),
			institution: mapField(keyed, institutionAliases),
			issued:      mapField(keyed, issuedAliases),
		})
	}
	return rows, nil
}

// processRow validates, persists, and anchors one row. Failures are
// isolated: whatever happens here, the next row still runs.
func (p *Pipeline) processRow(ctx context.Context, rw row, issuer string, report *Report) {
	var missing []string
	if rw.name == "" {
		missing = append(missing, "student_name")
	}
	if rw.course == "" {
		missing = append(missing, "course_name")
	}
	if rw.roll == "" {
		// Records are keyed by roll number; a row without one cannot be
		// upserted or anchored.
		missing = append(missing, "roll_number")
	}
	if len(missing) > 0 {
		report.addError(p.maxErrors, rw.number, rw.data(), "missing required fields: "+strings.Join(missing, ", "))
		return
	}

	// An absent issue date passes through as the zero time: the store
	// defaults it on first insert and leaves a persisted date untouched
	// on updates.
	issued, err := parseIssueDate(rw.issued)
	if err != nil {
		report.addError(p.maxErrors, rw.number, rw.data(), err.Error())
		return
	}

	institution := rw.institution
	if institution == "" {
		institution = defaultInstitution
	}

	res, err := p.records.Upsert(ctx, models.CertificateRecord{
		RollNumber:  rw.roll,
		StudentName: rw.name,
		CourseName:  rw.course,
		Institution: institution,
		IssueDate:   issued,
		Grade:       rw.grade,
	})
	if err != nil {
		p.logger.Error("row upsert failed", "row", rw.number, "roll_number", rw.roll, "error", err)
		report.addError(p.maxErrors, rw.number, rw.data(), fmt.Sprintf("database error: %v", err))
		return
	}
	if res.WasInsert {
		report.Summary.Inserted++
	} else {
		report.Summary.Updated++
	}

	// A full queue or a down ledger must not turn a persisted row into a
	// failure; anchoring stays detached from row classification.
	accepted := p.anchors.Enqueue(ledger.AnchorRequest{
		RollNumber: res.Record.RollNumber,
		Hash:       hash.Compute(res.Record),
		Issuer:     issuer,
	})
	if !accepted {
		p.logger.Warn("anchor enqueue rejected", "roll_number", res.Record.RollNumber)
	}
}

func parseIssueDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range issueDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid issue date %q", value)
}
