package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"certledger/pkg/platform/sentinel"
)

// HTTPClient talks to the ledger bridge service: POST /api/store-hash and
// POST /api/verify-hash. The bridge owns the chain interaction; this client
// only speaks its JSON contract.
type HTTPClient struct {
	baseURL       string
	client        *http.Client
	verifyTimeout time.Duration
	anchorTimeout time.Duration
	logger        *slog.Logger
}

// NewHTTPClient constructs a bridge-backed ledger client.
func NewHTTPClient(baseURL string, verifyTimeout, anchorTimeout time.Duration, logger *slog.Logger) *HTTPClient {
	if verifyTimeout <= 0 {
		verifyTimeout = 10 * time.Second
	}
	if anchorTimeout <= 0 {
		anchorTimeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        &http.Client{},
		verifyTimeout: verifyTimeout,
		anchorTimeout: anchorTimeout,
		logger:        logger,
	}
}

type storeHashRequest struct {
	CertID string `json:"certId"`
	Hash   string `json:"hash"`
	Issuer string `json:"issuer"`
}

type storeHashResponse struct {
	TxRef string `json:"txRef"`
}

type verifyHashRequest struct {
	CertificateID string `json:"certificateId"`
	Hash          string `json:"hash"`
}

type verifyHashResponse struct {
	Verified bool `json:"verified"`
}

func (c *HTTPClient) Anchor(ctx context.Context, req AnchorRequest) (AnchorResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.anchorTimeout)
	defer cancel()

	var resp storeHashResponse
	err := c.post(ctx, "/api/store-hash", storeHashRequest{
		CertID: req.RollNumber,
		Hash:   req.Hash,
		Issuer: req.Issuer,
	}, &resp)
	if err != nil {
		return AnchorResult{}, fmt.Errorf("anchor %s: %w", req.RollNumber, err)
	}
	return AnchorResult{TxRef: resp.TxRef}, nil
}

func (c *HTTPClient) Verify(ctx context.Context, rollNumber, hash string) VerifyOutcome {
	ctx, cancel := context.WithTimeout(ctx, c.verifyTimeout)
	defer cancel()

	var resp verifyHashResponse
	err := c.post(ctx, "/api/verify-hash", verifyHashRequest{
		CertificateID: rollNumber,
		Hash:          hash,
	}, &resp)
	if err != nil {
		c.logger.WarnContext(ctx, "ledger verify unavailable", "roll_number", rollNumber, "error", err)
		return OutcomeUnknown
	}
	if resp.Verified {
		return OutcomeVerified
	}
	return OutcomeMismatch
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: bridge returned status %d", sentinel.ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode bridge response: %w", err)
	}
	return nil
}
