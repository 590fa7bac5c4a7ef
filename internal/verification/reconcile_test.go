package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"certledger/internal/certificate/models"
	"certledger/internal/extraction"
)

func storedRecord() models.CertificateRecord {
	return models.CertificateRecord{
		RollNumber:  "CS-2021-042",
		StudentName: "Alice Johnson",
		CourseName:  "Computer Science",
	}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name      string
		extracted extraction.Fields
		want      []string
	}{
		{
			name:      "exact match",
			extracted: extraction.Fields{Name: "Alice Johnson", Roll: "CS-2021-042", Course: "Computer Science"},
			want:      nil,
		},
		{
			name:      "case and whitespace normalized",
			extracted: extraction.Fields{Name: "  alice JOHNSON ", Roll: "cs-2021-042", Course: "COMPUTER science"},
			want:      nil,
		},
		{
			name:      "absent fields skipped",
			extracted: extraction.Fields{},
			want:      nil,
		},
		{
			name:      "whitespace-only treated as absent",
			extracted: extraction.Fields{Name: "   "},
			want:      nil,
		},
		{
			name:      "single mismatch",
			extracted: extraction.Fields{Name: "Bob Smith"},
			want:      []string{`studentName mismatch: expected "Alice Johnson", found "Bob Smith"`},
		},
		{
			name:      "every field divergent",
			extracted: extraction.Fields{Name: "Bob", Roll: "EE-1", Course: "History"},
			want: []string{
				`studentName mismatch: expected "Alice Johnson", found "Bob"`,
				`rollNumber mismatch: expected "CS-2021-042", found "EE-1"`,
				`courseName mismatch: expected "Computer Science", found "History"`,
			},
		},
		{
			name:      "mismatch reports trimmed extracted value",
			extracted: extraction.Fields{Course: " History "},
			want:      []string{`courseName mismatch: expected "Computer Science", found "History"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(tt.extracted, storedRecord()))
		})
	}
}
