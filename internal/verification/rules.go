package verification

import (
	"certledger/internal/audit"
	"certledger/internal/certificate/models"
	"certledger/internal/ledger"
)

// Decision is one terminal outcome of the verdict state machine, together
// with what the audit trail should record about the ledger step.
type Decision struct {
	Status      Verdict
	Reasons     []string
	LedgerCheck audit.LedgerCheck
}

// The rule chain is pure domain logic - no I/O, no side effects. The
// service resolves each input (extraction, lookup, reconciliation, ledger)
// and consults the rules between steps so later, more expensive checks are
// skipped once an outcome is terminal.

// decideFailure covers the paths that terminate before a record is
// resolved: extraction failure, missing identifier, unknown subject.
func decideFailure(reason string) Decision {
	return Decision{
		Status:      VerdictInvalid,
		Reasons:     []string{reason},
		LedgerCheck: audit.LedgerCheckSkipped,
	}
}

// decideRecord applies the post-lookup rules. Rule priority (fail-fast):
//  1. Blacklist - an authoritative override; a blacklisted certificate is
//     untrustworthy even when its hash still matches the ledger.
//  2. Reconciliation findings - conclusive on their own, since a ledger
//     check cannot tell a tampered field from a stale anchor.
//
// When neither fires, the integrity check is still outstanding and the
// second return is true.
func decideRecord(rec models.CertificateRecord, findings []string) (Decision, bool) {
	if rec.Blacklisted {
		return Decision{
			Status:      VerdictSuspicious,
			Reasons:     []string{ReasonBlacklisted},
			LedgerCheck: audit.LedgerCheckSkipped,
		}, false
	}
	if len(findings) > 0 {
		return Decision{
			Status:      VerdictSuspicious,
			Reasons:     findings,
			LedgerCheck: audit.LedgerCheckSkipped,
		}, false
	}
	return Decision{}, true
}

// decideLedger maps the integrity check outcome to a verdict. Unknown
// degrades to Valid with an explicit caveat: ledger unavailability is an
// infrastructure condition, not evidence of forgery.
func decideLedger(outcome ledger.VerifyOutcome) Decision {
	switch outcome {
	case ledger.OutcomeMismatch:
		return Decision{
			Status:      VerdictSuspicious,
			Reasons:     []string{ReasonLedgerMismatch},
			LedgerCheck: audit.LedgerCheckMismatch,
		}
	case ledger.OutcomeUnknown:
		return Decision{
			Status:      VerdictValid,
			Reasons:     []string{ReasonLedgerUnavailable},
			LedgerCheck: audit.LedgerCheckUnknown,
		}
	default:
		return Decision{
			Status:      VerdictValid,
			LedgerCheck: audit.LedgerCheckVerified,
		}
	}
}
