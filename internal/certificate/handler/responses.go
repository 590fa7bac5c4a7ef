package handler

import (
	"time"

	"certledger/internal/certificate/models"
)

// CertificateResponse is the wire shape of one stored record.
type CertificateResponse struct {
	RollNumber        string     `json:"rollNumber"`
	StudentName       string     `json:"studentName"`
	CourseName        string     `json:"courseName"`
	Institution       string     `json:"institution"`
	IssueDate         *time.Time `json:"issueDate,omitempty"`
	Grade             string     `json:"grade,omitempty"`
	Blacklisted       bool       `json:"blacklisted"`
	LastVerifiedAt    *time.Time `json:"lastVerifiedAt,omitempty"`
	VerificationCount int64      `json:"verificationCount"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Pagination mirrors the listing metadata callers page with.
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalRecords int  `json:"totalRecords"`
	HasNext      bool `json:"hasNext"`
	HasPrev      bool `json:"hasPrev"`
}

// ListResponse is the envelope for GET /certificates.
type ListResponse struct {
	Certificates []CertificateResponse `json:"certificates"`
	Pagination   Pagination            `json:"pagination"`
}

func fromRecord(rec models.CertificateRecord) CertificateResponse {
	resp := CertificateResponse{
		RollNumber:        rec.RollNumber,
		StudentName:       rec.StudentName,
		CourseName:        rec.CourseName,
		Institution:       rec.Institution,
		Grade:             rec.Grade,
		Blacklisted:       rec.Blacklisted,
		LastVerifiedAt:    rec.LastVerifiedAt,
		VerificationCount: rec.VerificationCount,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
	if !rec.IssueDate.IsZero() {
		d := rec.IssueDate
		resp.IssueDate = &d
	}
	return resp
}

func fromRecords(recs []models.CertificateRecord) []CertificateResponse {
	out := make([]CertificateResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromRecord(rec))
	}
	return out
}

func paginate(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 && total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalRecords: total,
		HasNext:      page < totalPages,
		HasPrev:      page > 1,
	}
}
