package handler

import (
	"strings"
	"time"

	"certledger/internal/certificate/models"
	dErrors "certledger/pkg/domainerrors"
)

// RegisterRequest is the HTTP request body for POST /certificates.
type RegisterRequest struct {
	RollNumber  string `json:"rollNumber"`
	StudentName string `json:"studentName"`
	CourseName  string `json:"courseName"`
	Institution string `json:"institution"`
	IssueDate   string `json:"issueDate"`
	Grade       string `json:"grade"`

	// Populated by Validate
	parsedIssueDate time.Time
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.RollNumber = strings.TrimSpace(r.RollNumber)
	r.StudentName = strings.TrimSpace(r.StudentName)
	r.CourseName = strings.TrimSpace(r.CourseName)
	r.Institution = strings.TrimSpace(r.Institution)
	r.Grade = strings.TrimSpace(r.Grade)

	if r.RollNumber == "" {
		return dErrors.New(dErrors.CodeBadRequest, "rollNumber is required")
	}
	if r.StudentName == "" {
		return dErrors.New(dErrors.CodeBadRequest, "studentName is required")
	}
	if r.CourseName == "" {
		return dErrors.New(dErrors.CodeBadRequest, "courseName is required")
	}

	if v := strings.TrimSpace(r.IssueDate); v != "" {
		parsed, err := parseIssueDate(v)
		if err != nil {
			return dErrors.New(dErrors.CodeBadRequest, "issueDate must be RFC 3339, YYYY-MM-DD, or a year")
		}
		r.parsedIssueDate = parsed
	}
	return nil
}

// Record maps the validated request onto the domain model.
func (r *RegisterRequest) Record() models.CertificateRecord {
	return models.CertificateRecord{
		RollNumber:  r.RollNumber,
		StudentName: r.StudentName,
		CourseName:  r.CourseName,
		Institution: r.Institution,
		IssueDate:   r.parsedIssueDate,
		Grade:       r.Grade,
	}
}

func parseIssueDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006"} {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// BlacklistRequest is the HTTP request body for
// PATCH /certificates/{rollNumber}/blacklist.
type BlacklistRequest struct {
	Blacklisted *bool  `json:"blacklisted"`
	Reason      string `json:"reason"`
}

// Validate implements the Validatable interface for DecodeAndPrepare.
func (r *BlacklistRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Blacklisted == nil {
		return dErrors.New(dErrors.CodeBadRequest, "blacklisted is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	return nil
}
