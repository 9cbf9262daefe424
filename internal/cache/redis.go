package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tempohq/tempo/api/internal/model"
)

// versionTTL bounds how long an idle creator's version counter survives. It
// must comfortably exceed the listing TTL: a counter may only reset after
// every listing entry written under it has already expired, otherwise the
// reset would point reads back at stale entries.
const versionTTL = 24 * time.Hour

// EventCache caches serialized event listings in Redis, one namespace per
// creator.
type EventCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewEventCache creates a cache on the given Redis client. The client is
// shared with the other Redis consumers and closed by the caller.
func NewEventCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *EventCache {
	return &EventCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// GetListing returns the cached payload for a creator's listing variant, or
// false on a miss. Redis failures are logged and reported as misses.
func (c *EventCache) GetListing(ctx context.Context, creatorID string, filters *model.EventFilters) ([]byte, bool) {
	version, err := c.version(ctx, creatorID)
	if err != nil {
		c.logger.Warn("cache version lookup failed", "creator_id", creatorID, "error", err)
		return nil, false
	}

	payload, err := c.client.Get(ctx, listingKey(creatorID, version, filters)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", "creator_id", creatorID, "error", err)
		}
		return nil, false
	}
	return payload, true
}

// PutListing stores a listing payload under the creator's current version.
// Best effort: failures are logged and dropped.
func (c *EventCache) PutListing(ctx context.Context, creatorID string, filters *model.EventFilters, payload []byte) {
	version, err := c.version(ctx, creatorID)
	if err != nil {
		c.logger.Warn("cache version lookup failed", "creator_id", creatorID, "error", err)
		return
	}

	if err := c.client.Set(ctx, listingKey(creatorID, version, filters), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "creator_id", creatorID, "error", err)
	}
}

// Invalidate bumps the creator's version counter, orphaning every cached
// listing variant for that creator. Orphans expire via TTL, and the counter
// itself expires after versionTTL of inactivity so one-time creators do not
// leave keys behind forever.
func (c *EventCache) Invalidate(ctx context.Context, creatorID string) {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, versionKey(creatorID))
	pipe.Expire(ctx, versionKey(creatorID), versionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("cache invalidation failed", "creator_id", creatorID, "error", err)
	}
}

func (c *EventCache) version(ctx context.Context, creatorID string) (int64, error) {
	version, err := c.client.Get(ctx, versionKey(creatorID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return version, nil
}
