// Package ledger talks to the external append-only integrity ledger. Two
// implementations exist: an HTTP bridge service and a direct Ethereum
// contract client. Both expose the same narrow contract: anchor a digest,
// verify a digest. Verification distinguishes "the ledger says no" from
// "the ledger could not be reached" because unavailability is not evidence
// of forgery.
package ledger

import "context"

// VerifyOutcome is the tri-state result of a ledger check.
type VerifyOutcome string

const (
	// OutcomeVerified: the ledger holds this exact digest for the key.
	OutcomeVerified VerifyOutcome = "verified"
	// OutcomeMismatch: the ledger answered and the digest does not match.
	OutcomeMismatch VerifyOutcome = "mismatch"
	// OutcomeUnknown: timeout or outage; no conclusion may be drawn.
	OutcomeUnknown VerifyOutcome = "unknown"
)

// AnchorRequest is the hash-and-metadata tuple stored on the ledger.
type AnchorRequest struct {
	RollNumber string
	Hash       string
	Issuer     string
}

// AnchorResult reports a successful anchor. TxRef is the ledger's own
// reference for the write when it provides one.
type AnchorResult struct {
	TxRef string
}

// Client is the integrity ledger contract.
type Client interface {
	// Anchor stores a digest. Callers on the request path never invoke this
	// directly; they enqueue through the anchor dispatcher so the response
	// is never blocked on ledger latency.
	Anchor(ctx context.Context, req AnchorRequest) (AnchorResult, error)

	// Verify checks a digest. It never returns an error: every failure mode
	// collapses into OutcomeUnknown.
	Verify(ctx context.Context, rollNumber, hash string) VerifyOutcome
}

// Disabled is the no-op client used when no ledger is configured. Verify
// reports Unknown so verdicts degrade gracefully rather than lying.
type Disabled struct{}

func (Disabled) Anchor(context.Context, AnchorRequest) (AnchorResult, error) {
	return AnchorResult{}, nil
}

func (Disabled) Verify(context.Context, string, string) VerifyOutcome {
	return OutcomeUnknown
}
