package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// PublicInfoPrefix is the prefix for public link info keys in Redis
	PublicInfoPrefix = "link:public:"
	// DefaultTTL bounds how long a cached public view can lag behind an
	// admin edit; admin writes also invalidate explicitly
	DefaultTTL = 5 * time.Minute
)

// RedisCache wraps the Redis client. It serves the public-info cache
// and hands its raw client to the rate limiter.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(addr, password string, db, poolSize int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves the cached public info payload for a short code.
// Returns "" on a cache miss.
func (r *RedisCache) Get(ctx context.Context, shortCode string) (string, error) {
	key := PublicInfoPrefix + shortCode
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil // Cache miss
	}
	if err != nil {
		return "", fmt.Errorf("failed to get from Redis: %w", err)
	}
	return val, nil
}

// Set stores the public info payload for a short code with default TTL
func (r *RedisCache) Set(ctx context.Context, shortCode, payload string) error {
	return r.SetWithTTL(ctx, shortCode, payload, DefaultTTL)
}

// SetWithTTL stores the public info payload with a custom TTL
func (r *RedisCache) SetWithTTL(ctx context.Context, shortCode, payload string, ttl time.Duration) error {
	key := PublicInfoPrefix + shortCode
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in Redis: %w", err)
	}
	return nil
}

// Delete removes a short code's cached public info after an admin edit
func (r *RedisCache) Delete(ctx context.Context, shortCode string) error {
	key := PublicInfoPrefix + shortCode
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// GetClient returns the underlying Redis client
func (r *RedisCache) GetClient() *redis.Client {
	return r.client
}
