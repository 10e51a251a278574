package book

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/readfolio/api/internal/platform/apperr"
	"github.com/readfolio/api/internal/platform/constants"
)

// RedisStatsCache implements [StatsCache] using Redis.
type RedisStatsCache struct {
	client *redis.Client
}

// NewStatsCache creates a new Redis-backed stats cache.
func NewStatsCache(client *redis.Client) *RedisStatsCache {
	return &RedisStatsCache{client: client}
}

func statsKey(bookID string) string {
	return constants.RedisPrefixBookStats + bookID
}

// Get returns the cached aggregates, or [apperr.NotFound] on a miss.
func (cache *RedisStatsCache) Get(context context.Context, bookID string) (*Stats, error) {
	payload, err := cache.client.Get(context, statsKey(bookID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Book stats cache entry")
		}
		return nil, fmt.Errorf("redis_book_stats_get_failed: %w", err)
	}

	stats := &Stats{}
	if err := json.Unmarshal(payload, stats); err != nil {
		// A corrupt entry behaves like a miss; the caller recomputes and overwrites it.
		return nil, apperr.NotFound("Book stats cache entry")
	}

	return stats, nil
}

// Set stores the aggregates with the given TTL.
func (cache *RedisStatsCache) Set(context context.Context, stats *Stats, ttl time.Duration) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("redis_book_stats_marshal_failed: %w", err)
	}

	if err := cache.client.Set(context, statsKey(stats.BookID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_book_stats_set_failed: %w", err)
	}

	return nil
}

// Invalidate drops the cached entry for a book.
func (cache *RedisStatsCache) Invalidate(context context.Context, bookID string) error {
	if err := cache.client.Del(context, statsKey(bookID)).Err(); err != nil {
		return fmt.Errorf("redis_book_stats_invalidate_failed: %w", err)
	}
	return nil
}
