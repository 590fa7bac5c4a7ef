// Package hash computes the canonical content digest of a certificate
// record. Ingestion and verification both call Compute; the ledger check is
// only meaningful because the two sites produce byte-identical input for
// logically equal records.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"certledger/internal/certificate/models"
)

// canonical fixes field order and formats. Struct field order drives JSON
// key order, so adding a field here changes every digest: treat the layout
// as a wire format.
type canonical struct {
	RollNumber  string `json:"rollNumber"`
	StudentName string `json:"studentName"`
	CourseName  string `json:"courseName"`
	IssueDate   string `json:"issueDate"`
	Grade       string `json:"grade"`
}

// Compute returns the lowercase hex SHA-256 digest over the canonicalized
// record. Pure and total: no I/O, no clock, never fails.
func Compute(rec models.CertificateRecord) string {
	c := canonical{
		RollNumber:  rec.RollNumber,
		StudentName: rec.StudentName,
		CourseName:  rec.CourseName,
		Grade:       rec.Grade,
	}
	if !rec.IssueDate.IsZero() {
		c.IssueDate = rec.IssueDate.UTC().Format(time.RFC3339)
	}

	// Marshal cannot fail for a struct of strings.
	payload, _ := json.Marshal(c)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
