// Package verification decides whether a submitted certificate is authentic.
// It fuses three independently failing sources — document extraction, the
// system of record, and the integrity ledger — into a single verdict with
// human-readable reasons.
package verification

import (
	"time"

	"certledger/internal/certificate/models"
)

// Verdict is the terminal classification of one verification attempt.
type Verdict string

const (
	VerdictValid      Verdict = "Valid"
	VerdictSuspicious Verdict = "Suspicious"
	VerdictInvalid    Verdict = "Invalid"
)

// Reason strings surfaced to callers. Reconciliation findings are generated
// per field and are not listed here.
const (
	ReasonExtractionUnavailable = "extraction failed/unavailable"
	ReasonIdentifierMissing     = "certificate identifier not found in document"
	ReasonRecordNotFound        = "certificate not found in system of record"
	ReasonBlacklisted           = "certificate is blacklisted"
	ReasonLedgerMismatch        = "ledger hash mismatch"
	ReasonLedgerUnavailable     = "ledger verification unavailable"
)

// CertificateView is the snapshot of the stored record returned alongside a
// verdict. LedgerVerified is nil when the ledger could not be consulted.
type CertificateView struct {
	ID             string     `json:"id"`
	StudentName    string     `json:"studentName"`
	RollNumber     string     `json:"rollNumber"`
	CourseName     string     `json:"courseName"`
	Institution    string     `json:"institution,omitempty"`
	IssueDate      *time.Time `json:"issueDate,omitempty"`
	Grade          string     `json:"grade,omitempty"`
	VerifiedAt     time.Time  `json:"verifiedAt"`
	LedgerVerified *bool      `json:"ledgerVerified"`
}

// Result is the verdict envelope. Certificate is nil on the Invalid paths
// that terminate before a record is resolved.
type Result struct {
	Status      Verdict          `json:"status"`
	Reasons     []string         `json:"reasons,omitempty"`
	Certificate *CertificateView `json:"certificate"`
}

func snapshotView(rec models.CertificateRecord, verifiedAt time.Time, ledgerVerified *bool) *CertificateView {
	view := &CertificateView{
		ID:             rec.RollNumber,
		StudentName:    rec.StudentName,
		RollNumber:     rec.RollNumber,
		CourseName:     rec.CourseName,
		Institution:    rec.Institution,
		Grade:          rec.Grade,
		VerifiedAt:     verifiedAt,
		LedgerVerified: ledgerVerified,
	}
	if !rec.IssueDate.IsZero() {
		d := rec.IssueDate
		view.IssueDate = &d
	}
	return view
}
