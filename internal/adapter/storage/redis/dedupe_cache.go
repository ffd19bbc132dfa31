package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DedupeCache implements ports.DedupeCache using Redis. It is the fast path
// in front of the durable webhook event gate; the gate stays authoritative,
// so cache misses and cache errors are never fatal.
type DedupeCache struct {
	client *goredis.Client
	prefix string
}

// NewDedupeCache creates a new Redis-backed webhook dedupe cache.
func NewDedupeCache(client *goredis.Client) *DedupeCache {
	return &DedupeCache{
		client: client,
		prefix: "webhook:event:",
	}
}

// Seen reports whether the event id was recently marked.
// Returns false, nil if the key does not exist.
func (c *DedupeCache) Seen(ctx context.Context, eventID string) (bool, error) {
	_, err := c.client.Get(ctx, c.prefix+eventID).Result()
	if err != nil {
		if err == goredis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("redis dedupe get: %w", err)
	}
	return true, nil
}

// MarkSeen records the event id with TTL.
func (c *DedupeCache) MarkSeen(ctx context.Context, eventID string, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+eventID, "1", ttl).Err()
	if err != nil {
		return fmt.Errorf("redis dedupe set: %w", err)
	}
	return nil
}
