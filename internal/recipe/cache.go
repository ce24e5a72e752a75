package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache defines the interface for cached generated recipes.
type Cache interface {
	Get(ctx context.Context, key string) (*Recipe, error)
	Set(ctx context.Context, key string, recipe *Recipe) error
	Ping(ctx context.Context) error
}

const cacheKeyPrefix = "recipe:"

// RedisCache implements the Cache interface backed by Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get returns the cached recipe for an ingredient-set key, or nil on a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (*Recipe, error) {
	val, err := c.client.Get(ctx, cacheKeyPrefix+key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached recipe: %w", err)
	}

	var r Recipe
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached recipe: %w", err)
	}
	return &r, nil
}

// Set stores a recipe under an ingredient-set key, replacing any entry.
func (c *RedisCache) Set(ctx context.Context, key string, recipe *Recipe) error {
	data, err := json.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe: %w", err)
	}

	if err := c.client.Set(ctx, cacheKeyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache recipe: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
