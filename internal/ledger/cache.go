package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// VerifyCache decorates a Client with a Redis cache of positive verify
// results. Only OutcomeVerified is cached: a Mismatch must always be
// re-checked against the ledger, and Unknown is a transient non-answer.
// Anchoring invalidates the key so a re-anchored record is never judged by
// a stale cached result.
type VerifyCache struct {
	next   Client
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewVerifyCache wraps next with a Redis-backed cache.
func NewVerifyCache(next Client, client *redis.Client, ttl time.Duration, logger *slog.Logger) *VerifyCache {
	return &VerifyCache{next: next, client: client, ttl: ttl, logger: logger}
}

func cacheKey(rollNumber, hash string) string {
	return "ledger:verify:" + rollNumber + ":" + hash
}

func (c *VerifyCache) Verify(ctx context.Context, rollNumber, hash string) VerifyOutcome {
	key := cacheKey(rollNumber, hash)

	val, err := c.client.Get(ctx, key).Result()
	if err == nil && val == string(OutcomeVerified) {
		return OutcomeVerified
	}
	if err != nil && err != redis.Nil {
		// Cache trouble is not ledger trouble; fall through to the real check.
		c.logger.WarnContext(ctx, "verify cache read failed", "error", err)
	}

	outcome := c.next.Verify(ctx, rollNumber, hash)
	if outcome == OutcomeVerified {
		if err := c.client.Set(ctx, key, string(outcome), c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "verify cache write failed", "error", err)
		}
	}
	return outcome
}

func (c *VerifyCache) Anchor(ctx context.Context, req AnchorRequest) (AnchorResult, error) {
	if err := c.client.Del(ctx, cacheKey(req.RollNumber, req.Hash)).Err(); err != nil {
		c.logger.WarnContext(ctx, "verify cache invalidation failed", "error", err)
	}
	return c.next.Anchor(ctx, req)
}
