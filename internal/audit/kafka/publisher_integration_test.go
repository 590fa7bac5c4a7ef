//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"certledger/internal/audit"
	"certledger/pkg/testutil/containers"
)

type PublisherIntegrationSuite struct {
	suite.Suite
	broker    *containers.RedpandaContainer
	publisher *Publisher
}

func TestPublisherIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PublisherIntegrationSuite))
}

const testTopic = "certledger.verifications.test"

func (s *PublisherIntegrationSuite) SetupSuite() {
	s.broker = containers.NewRedpandaContainer(s.T())

	pub, err := NewPublisher([]string{s.broker.Broker}, testTopic, slog.New(slog.DiscardHandler))
	s.Require().NoError(err)
	s.publisher = pub
}

func (s *PublisherIntegrationSuite) TearDownSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if s.publisher != nil {
		_ = s.publisher.Close(ctx)
	}
	if s.broker != nil {
		s.broker.Terminate(ctx)
	}
}

func (s *PublisherIntegrationSuite) TestPublishedEntryRoundTrips() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entry := audit.Entry{
		ID:        uuid.New(),
		Action:    audit.ActionCertificateVerified,
		SubjectID: "CS2021001",
		Actor:     "registrar",
		Verdict:   "Valid",
		Reasons:   []string{"ledger verification unavailable"},
		Extracted: audit.ExtractedSnapshot{
			Roll: "CS2021001",
			Name: "Asha Verma",
		},
		LedgerCheck: audit.LedgerCheckUnknown,
		RequestedAt: time.Now().UTC(),
	}
	s.publisher.Publish(ctx, entry)
	s.Require().NoError(s.publisher.client.Flush(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker.Broker),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().Len(records, 1)

	s.Equal("CS2021001", string(records[0].Key))

	var got map[string]any
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(entry.ID.String(), got["id"])
	s.Equal("certificate_verified", got["action"])
	s.Equal("Valid", got["verdict"])
	s.Equal("registrar", got["actor"])
	s.Equal("unknown", got["ledgerCheck"])
}
