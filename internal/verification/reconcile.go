package verification

import (
	"fmt"
	"strings"

	"certledger/internal/certificate/models"
	"certledger/internal/extraction"
)

// Reconcile compares extracted document fields against the stored record
// and returns one finding per divergent field. Absent extracted values are
// skipped: extraction is best-effort and a missing field is not evidence of
// tampering. Comparison is case-insensitive after whitespace trim so OCR
// casing and padding never produce a false mismatch.
// Pure function, no I/O.
func Reconcile(extracted extraction.Fields, stored models.CertificateRecord) []string {
	var findings []string
	compare := func(field, found, expected string) {
		found = strings.TrimSpace(found)
		if found == "" {
			return
		}
		if !strings.EqualFold(found, strings.TrimSpace(expected)) {
			findings = append(findings,
				fmt.Sprintf("%s mismatch: expected %q, found %q", field, expected, found))
		}
	}
	compare("studentName", extracted.Name, stored.StudentName)
	compare("rollNumber", extracted.Roll, stored.RollNumber)
	compare("courseName", extracted.Course, stored.CourseName)
	return findings
}
