package ingestion

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certledger/internal/audit"
	"certledger/internal/certificate/hash"
	"certledger/internal/certificate/store"
	"certledger/internal/ledger"
	"certledger/internal/ledger/anchor"
	"certledger/pkg/platform/sentinel"
)

type recordingLedger struct {
	mu      sync.Mutex
	anchors []ledger.AnchorRequest
}

func (r *recordingLedger) Anchor(_ context.Context, req ledger.AnchorRequest) (ledger.AnchorResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anchors = append(r.anchors, req)
	return ledger.AnchorResult{TxRef: "0xabc"}, nil
}

func (r *recordingLedger) Verify(context.Context, string, string) ledger.VerifyOutcome {
	return ledger.OutcomeUnknown
}

func (r *recordingLedger) all() []ledger.AnchorRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ledger.AnchorRequest{}, r.anchors...)
}

type PipelineSuite struct {
	suite.Suite
	ctx        context.Context
	records    *store.InMemory
	ledger     *recordingLedger
	trail      *audit.InMemoryStore
	dispatcher *anchor.Dispatcher
	pipeline   *Pipeline
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.ctx = context.Background()
	s.records = store.NewInMemory()
	s.ledger = &recordingLedger{}

	logger := slog.New(slog.DiscardHandler)
	s.trail = audit.NewInMemoryStore()
	s.dispatcher = anchor.NewDispatcher(s.ledger, 2, 64, logger, nil)
	s.pipeline = NewPipeline(s.records, s.dispatcher,
		audit.NewRecorder(s.trail, nil, logger), logger, nil, 5*time.Second, 25)
}

func (s *PipelineSuite) TearDownTest() {
	s.dispatcher.Close()
}

func (s *PipelineSuite) ingest(csv string) Report {
	report, err := s.pipeline.Ingest(s.ctx, strings.NewReader(csv), "registrar@example.edu")
	s.Require().NoError(err)
	return report
}

func (s *PipelineSuite) TestInsertsNewRecords() {
	report := s.ingest(
		"Roll Number,studentName,courseName,grade,issueDate,institutionName\n" +
			"R1,Alice,CS,A,2023-06-15,Example University\n" +
			"R2,Bob,EE,B,2022-01-01,Example University\n")

	s.Equal(Summary{Total: 2, Inserted: 2, Updated: 0, Failed: 0}, report.Summary)
	s.Empty(report.Errors)

	rec, err := s.records.FindByRollNumber(s.ctx, "R1")
	s.Require().NoError(err)
	s.Equal("Alice", rec.StudentName)
	s.Equal("Example University", rec.Institution)
	s.Equal(time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), rec.IssueDate)
}

func (s *PipelineSuite) TestAliasNormalization() {
	report := s.ingest(
		"id,Name,Course,CGPA,Year,Institution\n" +
			"R1,Alice,CS,9.1,2023,Example University\n")

	s.Equal(Summary{Total: 1, Inserted: 1}, report.Summary)
	rec, err := s.records.FindByRollNumber(s.ctx, "R1")
	s.Require().NoError(err)
	s.Equal("9.1", rec.Grade)
	s.Equal(2023, rec.IssueDate.Year())
}

func (s *PipelineSuite) TestFirstNonEmptyAliasWins() {
	// Both "rollNumber" and "id" present; "Roll Number" order in the alias
	// list means rollNumber is consulted before id.
	report := s.ingest(
		"rollNumber,id,studentName,courseName\n" +
			"R-PRIMARY,R-FALLBACK,Alice,CS\n" +
			",R-ONLY,Bob,EE\n")

	s.Equal(2, report.Summary.Inserted)
	_, err := s.records.FindByRollNumber(s.ctx, "R-PRIMARY")
	s.NoError(err)
	_, err = s.records.FindByRollNumber(s.ctx, "R-ONLY")
	s.NoError(err)
}

func (s *PipelineSuite) TestPartialFailureIsolation() {
	report := s.ingest(
		"Roll Number,studentName,courseName\n" +
			"R1,Alice,CS\n" +
			"R2,,EE\n" +
			"R3,Carol,Math\n")

	s.Equal(Summary{Total: 3, Inserted: 2, Updated: 0, Failed: 1}, report.Summary)
	s.Require().Len(report.Errors, 1)
	s.Equal(2, report.Errors[0].Row)
	s.Equal("missing required fields: student_name", report.Errors[0].Error)
	s.Equal(map[string]string{"roll_number": "R2", "course_name": "EE"}, report.Errors[0].Data)

	_, err := s.records.FindByRollNumber(s.ctx, "R3")
	s.NoError(err, "a malformed row must not abort later rows")
}

func (s *PipelineSuite) TestMissingRollNumberFailsRow() {
	report := s.ingest(
		"Roll Number,studentName,courseName\n" +
			",Alice,CS\n")

	s.Equal(Summary{Total: 1, Failed: 1}, report.Summary)
	s.Require().Len(report.Errors, 1)
	s.Equal("missing required fields: roll_number", report.Errors[0].Error)
}

func (s *PipelineSuite) TestDefaultsApplied() {
	before := time.Now().UTC()
	report := s.ingest(
		"Roll Number,studentName,courseName\n" +
			"R1,Alice,CS\n")
	s.Equal(1, report.Summary.Inserted)

	rec, err := s.records.FindByRollNumber(s.ctx, "R1")
	s.Require().NoError(err)
	s.Equal(defaultInstitution, rec.Institution)
	s.False(rec.IssueDate.Before(before), "issue date defaults to now when absent")
}

func (s *PipelineSuite) TestInvalidIssueDateFailsRow() {
	report := s.ingest(
		"Roll Number,studentName,courseName,issueDate\n" +
			"R1,Alice,CS,not-a-date\n")

	s.Equal(Summary{Total: 1, Failed: 1}, report.Summary)
	s.Require().Len(report.Errors, 1)
	s.Equal(`invalid issue date "not-a-date"`, report.Errors[0].Error)
}

func (s *PipelineSuite) TestIdempotentReingestion() {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	records := store.NewInMemory(store.WithClock(func() time.Time { return now }))
	logger := slog.New(slog.DiscardHandler)
	pipeline := NewPipeline(records, s.dispatcher,
		audit.NewRecorder(s.trail, nil, logger), logger, nil, 5*time.Second, 25)

	csv := "Roll Number,studentName,courseName,grade\n" +
		"R1,Alice,CS,A\n" +
		"R2,Bob,EE,B\n"

	first, err := pipeline.Ingest(s.ctx, strings.NewReader(csv), "registrar@example.edu")
	s.Require().NoError(err)
	s.Equal(Summary{Total: 2, Inserted: 2}, first.Summary)

	before, err := records.FindByRollNumber(s.ctx, "R1")
	s.Require().NoError(err)
	s.Equal(now, before.IssueDate)

	now = now.Add(48 * time.Hour)
	second, err := pipeline.Ingest(s.ctx, strings.NewReader(csv), "registrar@example.edu")
	s.Require().NoError(err)
	s.Equal(Summary{Total: 2, Inserted: 0, Updated: 2}, second.Summary)

	after, err := records.FindByRollNumber(s.ctx, "R1")
	s.Require().NoError(err)
	s.True(after.IssueDate.Equal(before.IssueDate),
		"a row without an issue date must not restamp the persisted one")
	s.Equal(hash.Compute(before), hash.Compute(after),
		"re-uploading the same file must not drift the anchored digest")
}

func (s *PipelineSuite) TestUpdatePreservesUnspecifiedFields() {
	s.ingest("Roll Number,studentName,courseName,grade\nR1,Alice,CS,A\n")
	report := s.ingest("Roll Number,studentName,courseName\nR1,Alicia,CS\n")
	s.Equal(1, report.Summary.Updated)

	rec, err := s.records.FindByRollNumber(s.ctx, "R1")
	s.Require().NoError(err)
	s.Equal("Alicia", rec.StudentName)
	s.Equal("A", rec.Grade, "absent grade column must not blank the stored grade")
}

func (s *PipelineSuite) TestRaggedAndEmptyLinesSkipped() {
	report := s.ingest(
		"Roll Number,studentName,courseName,grade\n" +
			"R1,Alice,CS,A,extra-column\n" +
			"\n" +
			"R2,Bob\n")

	// The ragged short row parses but misses the course value.
	s.Equal(Summary{Total: 2, Inserted: 1, Failed: 1}, report.Summary)
	rec, err := s.records.FindByRollNumber(s.ctx, "R1")
	s.Require().NoError(err)
	s.Equal("A", rec.Grade)
}

func (s *PipelineSuite) TestMalformedLineDoesNotSinkBatch() {
	report := s.ingest(
		"Roll Number,studentName,courseName\n" +
			"R1,Alice,CS\n" +
			"R2,\"broken,EE\n")

	// The unterminated quote swallows its own line only.
	s.Equal(1, report.Summary.Inserted)
	_, err := s.records.FindByRollNumber(s.ctx, "R1")
	s.NoError(err)
}

func (s *PipelineSuite) TestHeaderOnlyFile() {
	report := s.ingest("Roll Number,studentName,courseName\n")
	s.Equal(Summary{}, report.Summary)
}

func (s *PipelineSuite) TestAnchorsEveryPersistedRow() {
	s.ingest(
		"Roll Number,studentName,courseName\n" +
			"R1,Alice,CS\n" +
			"R2,,EE\n")
	s.dispatcher.Close()

	anchors := s.ledger.all()
	s.Require().Len(anchors, 1, "failed rows are never anchored")
	s.Equal("R1", anchors[0].RollNumber)
	s.Equal("registrar@example.edu", anchors[0].Issuer)

	rec, err := s.records.FindByRollNumber(s.ctx, "R1")
	s.Require().NoError(err)
	s.Equal(hash.Compute(rec), anchors[0].Hash, "anchored digest covers the persisted record")
}

func (s *PipelineSuite) TestBatchLeavesAuditEntry() {
	s.ingest("Roll Number,studentName,courseName\nR1,Alice,CS\n")

	entries, total, err := s.trail.List(s.ctx, audit.ListFilter{Action: audit.ActionBulkIngestion})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(entries, 1)
	s.Equal("registrar@example.edu", entries[0].Actor)
	s.Equal([]string{"total=1 inserted=1 updated=0 failed=0"}, entries[0].Reasons)
}

func (s *PipelineSuite) TestErrorCap() {
	var b strings.Builder
	b.WriteString("Roll Number,studentName,courseName\n")
	for i := 0; i < 40; i++ {
		b.WriteString("R,,\n")
	}

	logger := slog.New(slog.DiscardHandler)
	pipeline := NewPipeline(s.records, s.dispatcher,
		audit.NewRecorder(s.trail, nil, logger), logger, nil, 5*time.Second, 25)
	report, err := pipeline.Ingest(s.ctx, strings.NewReader(b.String()), "issuer")
	s.Require().NoError(err)
	s.Equal(40, report.Summary.Failed, "the cap limits reported errors, not counters")
	s.Len(report.Errors, 25)
}

// slowReader never delivers data, simulating a stalled upload.
type slowReader struct{}

func (slowReader) Read([]byte) (int, error) {
	time.Sleep(50 * time.Millisecond)
	return 0, nil
}

func (s *PipelineSuite) TestParseDeadline() {
	logger := slog.New(slog.DiscardHandler)
	pipeline := NewPipeline(s.records, s.dispatcher,
		audit.NewRecorder(s.trail, nil, logger), logger, nil, 100*time.Millisecond, 25)

	start := time.Now()
	report, err := pipeline.Ingest(s.ctx, slowReader{}, "issuer")
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrTimeout)
	s.Equal(Report{}, report, "timeout yields a zero-row report")
	s.Less(time.Since(start), 2*time.Second, "the deadline bounds the wait")
}

func (s *PipelineSuite) TestUnreadableInput() {
	_, err := s.pipeline.Ingest(s.ctx, io.LimitReader(strings.NewReader(`"unterminated`), 13), "issuer")
	s.Error(err)
}
