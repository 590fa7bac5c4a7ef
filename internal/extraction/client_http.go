package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"certledger/pkg/platform/sentinel"
)

// HTTPClient posts documents to the extraction service's /api/analyze
// endpoint. It performs no retries; retry policy, if any, belongs to the
// caller.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPClient constructs an extraction client with the given timeout.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *HTTPClient) Extract(ctx context.Context, document []byte, mimeType, filename string) (Fields, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return Fields{}, &Failure{Reason: "build multipart request", Err: err}
	}
	if _, err := part.Write(document); err != nil {
		return Fields{}, &Failure{Reason: "build multipart request", Err: err}
	}
	if err := writer.Close(); err != nil {
		return Fields{}, &Failure{Reason: "build multipart request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze", &body)
	if err != nil {
		return Fields{}, &Failure{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Fields{}, &Failure{Reason: "service timeout", Err: sentinel.ErrTimeout}
		}
		c.logger.WarnContext(ctx, "extraction service unreachable", "error", err)
		return Fields{}, &Failure{Reason: "service unreachable", Err: sentinel.ErrUnavailable}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WarnContext(ctx, "extraction service returned error status", "status", resp.StatusCode)
		return Fields{}, &Failure{
			Reason: fmt.Sprintf("service returned status %d", resp.StatusCode),
			Err:    sentinel.ErrUnavailable,
		}
	}

	var fields Fields
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&fields); err != nil {
		return Fields{}, &Failure{Reason: "malformed service response", Err: err}
	}
	return fields, nil
}
