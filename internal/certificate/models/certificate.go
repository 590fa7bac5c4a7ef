package models

import "time"

// CertificateRecord is the system-of-record entity for one issued
// certificate. RollNumber is the natural key: unique, immutable once
// created, and the only identifier callers use.
type CertificateRecord struct {
	RollNumber  string
	StudentName string
	CourseName  string
	Institution string
	IssueDate   time.Time
	Grade       string

	// Blacklisted is sticky: clearing it is an administrative action and
	// every toggle produces an audit entry.
	Blacklisted bool

	// Store-managed fields. Only the verification path touches these, and
	// only through Store.RecordVerification, never through Upsert.
	LastVerifiedAt    *time.Time
	VerificationCount int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Merge applies the non-empty fields of incoming onto r, implementing the
// partial-update half of upsert semantics: a persisted value is never
// blanked by an empty incoming one.
func (r *CertificateRecord) Merge(incoming CertificateRecord) {
	if incoming.StudentName != "" {
		r.StudentName = incoming.StudentName
	}
	if incoming.CourseName != "" {
		r.CourseName = incoming.CourseName
	}
	if incoming.Institution != "" {
		r.Institution = incoming.Institution
	}
	if !incoming.IssueDate.IsZero() {
		r.IssueDate = incoming.IssueDate
	}
	if incoming.Grade != "" {
		r.Grade = incoming.Grade
	}
}
