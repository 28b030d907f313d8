package cachex

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache backed by a Redis server. Use it when several processes
// share one client credential: whichever process authenticates first leaves
// the token for the rest, and Redis owns the TTL bookkeeping.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing go-redis client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// NewRedisFromURL connects using a redis:// or rediss:// URL and verifies the
// connection with a ping before returning.
func NewRedisFromURL(ctx context.Context, rawURL string) (*Redis, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("cachex: invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cachex: redis ping failed: %w", err)
	}

	return &Redis{client: client}, nil
}

// Get implements Cache. redis.Nil maps to plain absence.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cachex: redis get: %w", err)
	}
	return value, true, nil
}

// Put implements Cache.
func (r *Redis) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cachex: redis set: %w", err)
	}
	return nil
}

// Forget implements Cache.
func (r *Redis) Forget(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cachex: redis del: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
