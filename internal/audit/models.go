// Package audit keeps the append-only trail of verification attempts and
// administrative actions. Entries are written once per action and never
// mutated afterwards.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action classifies what produced an entry.
type Action string

const (
	ActionCertificateVerified Action = "certificate_verified"
	ActionCertificateDeleted  Action = "certificate_deleted"
	ActionBlacklistToggled    Action = "blacklist_toggled"
	ActionBulkIngestion       Action = "bulk_ingestion"
)

// LedgerCheck records what the integrity ledger said during verification.
type LedgerCheck string

const (
	LedgerCheckVerified LedgerCheck = "verified"
	LedgerCheckMismatch LedgerCheck = "mismatch"
	LedgerCheckUnknown  LedgerCheck = "unknown"
	// LedgerCheckSkipped means the decision terminated before the ledger
	// step (extraction failure, unknown subject, blacklist, field mismatch).
	LedgerCheckSkipped LedgerCheck = "skipped"
)

// ExtractedSnapshot preserves what the extraction service read from the
// document at decision time, so a verdict can be replayed later.
type ExtractedSnapshot struct {
	CertID string `json:"certId,omitempty"`
	Name   string `json:"name,omitempty"`
	Roll   string `json:"roll,omitempty"`
	Course string `json:"course,omitempty"`
}

// Entry is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Entry struct {
	ID           uuid.UUID
	Action       Action
	SubjectID    string
	Actor        string
	RequestID    string
	ClientIP     string
	Verdict      string
	Reasons      []string
	Extracted    ExtractedSnapshot
	ComputedHash string
	LedgerCheck  LedgerCheck
	RequestedAt  time.Time
}
