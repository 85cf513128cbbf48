package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/craftmarket/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// processedKeyPrefix namespaces processed-event markers in the shared Redis
// instance, next to the unread-count and token revocation keys.
const processedKeyPrefix = "market:events:processed:"

// RedisIdempotencyStore records processed event IDs in Redis so a replayed
// domain event is dropped by every server instance, not only the one that
// handled it first.
type RedisIdempotencyStore struct {
	client *redis.Client
	prefix string
}

// NewRedisIdempotencyStore wraps a connected Redis client. An empty prefix
// selects the default key namespace.
func NewRedisIdempotencyStore(client *redis.Client, prefix string) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = processedKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, prefix: prefix}
}

// MarkProcessed claims the event ID atomically via SETNX. It returns false
// when another handler already claimed it.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	claimed, err := s.client.SetNX(ctx, s.prefix+eventID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	return claimed, nil
}

// IsProcessed reports whether the event ID has been claimed and its marker
// has not expired yet.
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("check event processed: %w", err)
	}
	return n > 0, nil
}

// Close releases the underlying Redis client.
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
