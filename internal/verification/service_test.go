package verification

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certledger/internal/audit"
	"certledger/internal/certificate/hash"
	"certledger/internal/certificate/models"
	"certledger/internal/certificate/store"
	"certledger/internal/extraction"
	"certledger/internal/ledger"
)

type fakeExtractor struct {
	fields extraction.Fields
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(context.Context, []byte, string, string) (extraction.Fields, error) {
	f.calls++
	return f.fields, f.err
}

type fakeLedger struct {
	outcome ledger.VerifyOutcome
	calls   int
	lastKey string
	lastSum string
}

func (f *fakeLedger) Anchor(context.Context, ledger.AnchorRequest) (ledger.AnchorResult, error) {
	return ledger.AnchorResult{}, nil
}

func (f *fakeLedger) Verify(_ context.Context, rollNumber, sum string) ledger.VerifyOutcome {
	f.calls++
	f.lastKey = rollNumber
	f.lastSum = sum
	return f.outcome
}

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	extractor *fakeExtractor
	records   *store.InMemory
	ledger    *fakeLedger
	trail     *audit.InMemoryStore
	svc       *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.extractor = &fakeExtractor{}
	s.records = store.NewInMemory()
	s.ledger = &fakeLedger{outcome: ledger.OutcomeVerified}
	s.trail = audit.NewInMemoryStore()

	logger := slog.New(slog.DiscardHandler)
	s.svc = NewService(
		s.extractor,
		s.records,
		s.ledger,
		audit.NewRecorder(s.trail, nil, logger),
		logger,
		nil, // metrics helpers are nil-safe
	)
}

func (s *ServiceSuite) seed(modify func(*models.CertificateRecord)) models.CertificateRecord {
	rec := models.CertificateRecord{
		RollNumber:  "CS-2021-042",
		StudentName: "Alice Johnson",
		CourseName:  "Computer Science",
		Institution: "Example University",
		IssueDate:   time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
		Grade:       "A",
	}
	if modify != nil {
		modify(&rec)
	}
	res, err := s.records.Upsert(s.ctx, rec)
	s.Require().NoError(err)
	if rec.Blacklisted {
		s.Require().NoError(s.records.SetBlacklisted(s.ctx, rec.RollNumber, true))
	}
	return res.Record
}

func (s *ServiceSuite) matchingFields() extraction.Fields {
	return extraction.Fields{
		CertID: "CERT-1",
		Name:   "Alice Johnson",
		Roll:   "CS-2021-042",
		Course: "Computer Science",
	}
}

func (s *ServiceSuite) trailEntries() []audit.Entry {
	entries, _, err := s.trail.List(s.ctx, audit.ListFilter{})
	s.Require().NoError(err)
	return entries
}

func (s *ServiceSuite) requireOneEntry() audit.Entry {
	entries := s.trailEntries()
	s.Require().Len(entries, 1, "exactly one audit entry per verification call")
	return entries[0]
}

func (s *ServiceSuite) verificationCount(roll string) int64 {
	rec, err := s.records.FindByRollNumber(s.ctx, roll)
	s.Require().NoError(err)
	return rec.VerificationCount
}

func (s *ServiceSuite) TestExtractionFailureIsInvalid() {
	s.extractor.err = &extraction.Failure{Reason: "service unreachable"}

	res, err := s.svc.VerifyDocument(s.ctx, []byte("doc"), "application/pdf", "cert.pdf")
	s.Require().NoError(err)
	s.Equal(VerdictInvalid, res.Status)
	s.Equal([]string{ReasonExtractionUnavailable}, res.Reasons)
	s.Nil(res.Certificate)

	entry := s.requireOneEntry()
	s.Equal("Invalid", entry.Verdict)
	s.Equal(audit.LedgerCheckSkipped, entry.LedgerCheck)
	s.Zero(s.ledger.calls)
}

func (s *ServiceSuite) TestMissingIdentifierIsInvalid() {
	s.extractor.fields = extraction.Fields{Name: "Alice Johnson"}

	res, err := s.svc.VerifyDocument(s.ctx, []byte("doc"), "application/pdf", "cert.pdf")
	s.Require().NoError(err)
	s.Equal(VerdictInvalid, res.Status)
	s.Equal([]string{ReasonIdentifierMissing}, res.Reasons)
	s.requireOneEntry()
}

func (s *ServiceSuite) TestCertIDFallsBackAsIdentifier() {
	s.seed(func(r *models.CertificateRecord) { r.RollNumber = "CERT-9" })
	s.extractor.fields = extraction.Fields{CertID: "CERT-9"}

	res, err := s.svc.VerifyDocument(s.ctx, []byte("doc"), "application/pdf", "cert.pdf")
	s.Require().NoError(err)
	s.Equal(VerdictValid, res.Status)
}

func (s *ServiceSuite) TestUnknownSubjectIsInvalid() {
	s.extractor.fields = s.matchingFields()

	res, err := s.svc.VerifyDocument(s.ctx, []byte("doc"), "application/pdf", "cert.pdf")
	s.Require().NoError(err)
	s.Equal(VerdictInvalid, res.Status)
	s.Equal([]string{ReasonRecordNotFound}, res.Reasons)
	s.Nil(res.Certificate)
	s.Zero(s.ledger.calls)

	entry := s.requireOneEntry()
	s.Equal("CS-2021-042", entry.SubjectID)
}

func (s *ServiceSuite) TestBlacklistOverridesEverything() {
	s.seed(func(r *models.CertificateRecord) { r.Blacklisted = true })
	s.extractor.fields = s.matchingFields()

	res, err := s.svc.VerifyDocument(s.ctx, []byte("doc"), "application/pdf", "cert.pdf")
	s.Require().NoError(err)
	s.Equal(VerdictSuspicious, res.Status)
	s.Equal([]string{ReasonBlacklisted}, res.Reasons)
	s.Require().NotNil(res.Certificate)
	s.Nil(res.Certificate.LedgerVerified)

	s.Zero(s.ledger.calls, "blacklist short-circuits the integrity check")
	s.EqualValues(1, s.verificationCount("CS-2021-042"))
	s.Equal(audit.LedgerCheckSkipped, s.requireOneEntry().LedgerCheck)
}

func (s *ServiceSuite) TestFieldMismatchIsSuspicious() {
	s.seed(nil)
	fields := s.matchingFields()
	fields.Name = "Bob Smith"
	s.extractor.fields = fields

	res, err := s.svc.VerifyDocument(s.ctx, []byte("doc"), "application/pdf", "cert.pdf")
	s.Require().NoError(err)
	s.Equal(VerdictSuspicious, res.Status)
	s.Equal([]string{`studentName mismatch: expected "Alice Johnson", found "Bob Smith"`}, res.Reasons)
	s.Require().NotNil(res.Certificate)

	s.Zero(s.ledger.calls, "mismatch short-circuits the integrity check")
	entry := s.requireOneEntry()
	s.Equal("Suspicious", entry.Verdict)
	s.Equal("Bob Smith", entry.Extracted.Name)
}

func (s *ServiceSuite) TestLedgerVerifiedIsValid() {
	stored := s.seed(nil)
	s.extractor.fields = s.matchingFields()

	res, err := s.svc.VerifyDocument(s.ctx, []byte("doc"), "application/pdf", "cert.pdf")
	s.Require().NoError(err)
	s.Equal(VerdictValid, res.Status)
	s.Empty(res.Reasons)
	s.Require().NotNil(res.Certificate)
	s.Require().NotNil(res.Certificate.LedgerVerified)
	s.True(*res.Certificate.LedgerVerified)

	s.Equal(1, s.ledger.calls)
	s.Equal("CS-2021-042", s.ledger.lastKey)
	s.Equal(hash.Compute(stored), s.ledger.lastSum, "digest computed over the stored record, not the extracted fields")

	entry := s.requireOneEntry()
	s.Equal(audit.LedgerCheckVerified, entry.LedgerCheck)
	s.Equal(s.ledger.lastSum, entry.ComputedHash)
	s.EqualValues(1, s.verificationCount("CS-2021-042"))
}

func (s *ServiceSuite) TestLedgerMismatchIsSuspicious() {
	s.seed(nil)
	s.extractor.fields = s.matchingFields()
	s.ledger.outcome = ledger.OutcomeMismatch

	res, err := s.svc.VerifyDocument(s.ctx, []byte("doc"), "application/pdf", "cert.pdf")
	s.Require().NoError(err)
	s.Equal(VerdictSuspicious, res.Status)
	s.Equal([]string{ReasonLedgerMismatch}, res.Reasons)
	s.Require().NotNil(res.Certificate)
	s.Require().NotNil(res.Certificate.LedgerVerified)
	s.False(*res.Certificate.LedgerVerified)
	s.Equal(audit.LedgerCheckMismatch, s.requireOneEntry().LedgerCheck)
}

func (s *ServiceSuite) TestLedgerUnavailableDegradesToValid() {
	s.seed(nil)
	s.extractor.fields = s.matchingFields()
	s.ledger.outcome = ledger.OutcomeUnknown

	res, err := s.svc.VerifyDocument(s.ctx, []byte("doc"), "application/pdf", "cert.pdf")
	s.Require().NoError(err)
	s.Equal(VerdictValid, res.Status)
	s.Equal([]string{ReasonLedgerUnavailable}, res.Reasons)
	s.Require().NotNil(res.Certificate)
	s.Nil(res.Certificate.LedgerVerified, "unavailability is not a yes or a no")
	s.Equal(audit.LedgerCheckUnknown, s.requireOneEntry().LedgerCheck)
}

func (s *ServiceSuite) TestVerifyByRollNumberSkipsExtraction() {
	s.seed(nil)

	res, err := s.svc.VerifyByRollNumber(s.ctx, " CS-2021-042 ")
	s.Require().NoError(err)
	s.Equal(VerdictValid, res.Status)
	s.Zero(s.extractor.calls)
	s.Equal(1, s.ledger.calls)
	s.EqualValues(1, s.verificationCount("CS-2021-042"))
}

func (s *ServiceSuite) TestVerifyByRollNumberEmptyIdentifier() {
	res, err := s.svc.VerifyByRollNumber(s.ctx, "  ")
	s.Require().NoError(err)
	s.Equal(VerdictInvalid, res.Status)
	s.Equal([]string{ReasonIdentifierMissing}, res.Reasons)
	s.requireOneEntry()
}

type brokenStore struct {
	store.Store
}

func (brokenStore) FindByRollNumber(context.Context, string) (models.CertificateRecord, error) {
	return models.CertificateRecord{}, errors.New("connection reset")
}

func (s *ServiceSuite) TestLookupFailureSurfacesErrorAndStillLogs() {
	logger := slog.New(slog.DiscardHandler)
	svc := NewService(s.extractor, brokenStore{}, s.ledger,
		audit.NewRecorder(s.trail, nil, logger), logger, nil)

	_, err := svc.VerifyByRollNumber(s.ctx, "CS-2021-042")
	s.Require().Error(err)
	s.requireOneEntry()
	s.Zero(s.ledger.calls)
}
