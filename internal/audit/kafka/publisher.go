// Package kafka streams audit entries to a Kafka topic for downstream
// consumers (SIEM, analytics). Delivery is best-effort: the database trail
// is the source of truth, the stream is a feed.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"certledger/internal/audit"
)

// Publisher writes entries to Kafka asynchronously. Safe for concurrent use.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type message struct {
	ID           string                  `json:"id"`
	Action       string                  `json:"action"`
	SubjectID    string                  `json:"subjectId,omitempty"`
	Actor        string                  `json:"actor,omitempty"`
	RequestID    string                  `json:"requestId,omitempty"`
	ClientIP     string                  `json:"clientIp,omitempty"`
	Verdict      string                  `json:"verdict,omitempty"`
	Reasons      []string                `json:"reasons,omitempty"`
	Extracted    audit.ExtractedSnapshot `json:"extracted"`
	ComputedHash string                  `json:"computedHash,omitempty"`
	LedgerCheck  string                  `json:"ledgerCheck,omitempty"`
	RequestedAt  string                  `json:"requestedAt"`
}

func NewPublisher(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Publish hands the entry to the producer and returns immediately. Failures
// are logged, not surfaced: a stalled broker must not stall verification.
func (p *Publisher) Publish(ctx context.Context, entry audit.Entry) {
	payload, err := json.Marshal(message{
		ID:           entry.ID.String(),
		Action:       string(entry.Action),
		SubjectID:    entry.SubjectID,
		Actor:        entry.Actor,
		RequestID:    entry.RequestID,
		ClientIP:     entry.ClientIP,
		Verdict:      entry.Verdict,
		Reasons:      entry.Reasons,
		Extracted:    entry.Extracted,
		ComputedHash: entry.ComputedHash,
		LedgerCheck:  string(entry.LedgerCheck),
		RequestedAt:  entry.RequestedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		p.logger.Error("marshal audit message", "error", err, "entry_id", entry.ID)
		return
	}

	record := &kgo.Record{
		Key:   []byte(entry.SubjectID),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("audit publish failed",
				"error", err, "topic", p.topic, "entry_id", entry.ID)
		}
	})
}

// Close flushes buffered records and releases the client.
func (p *Publisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		p.client.Close()
		return fmt.Errorf("flush audit publisher: %w", err)
	}
	p.client.Close()
	return nil
}
