package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// UnreadKind distinguishes the counters kept per user
type UnreadKind string

const (
	UnreadMessages      UnreadKind = "messages"
	UnreadNotifications UnreadKind = "notifications"
)

// UnreadCountCache caches per-user unread counters in Redis so that the
// badge endpoints do not hit the database on every poll. Counters are
// written through by the services that change read state and expire on
// their own as a safety net against drift.
type UnreadCountCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUnreadCountCache creates a cache around an existing Redis client
func NewUnreadCountCache(client *redis.Client, ttl time.Duration) *UnreadCountCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &UnreadCountCache{client: client, ttl: ttl}
}

func (c *UnreadCountCache) key(kind UnreadKind, userID uuid.UUID) string {
	return fmt.Sprintf("unread:%s:%s", kind, userID)
}

// Get returns the cached counter. The second return value is false on a
// cache miss.
func (c *UnreadCountCache) Get(ctx context.Context, kind UnreadKind, userID uuid.UUID) (int64, bool, error) {
	val, err := c.client.Get(ctx, c.key(kind, userID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read unread counter: %w", err)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt unread counter for %s: %w", c.key(kind, userID), err)
	}
	return count, true, nil
}

// Set stores the counter with the configured TTL
func (c *UnreadCountCache) Set(ctx context.Context, kind UnreadKind, userID uuid.UUID, count int64) error {
	if err := c.client.Set(ctx, c.key(kind, userID), count, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store unread counter: %w", err)
	}
	return nil
}

// Invalidate drops the counter so the next read recomputes it
func (c *UnreadCountCache) Invalidate(ctx context.Context, kind UnreadKind, userID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(kind, userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate unread counter: %w", err)
	}
	return nil
}
