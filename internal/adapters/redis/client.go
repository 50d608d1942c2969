package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"calendarbot/internal/adapters/config"
	"calendarbot/pkg/errors"
)

// Client wraps Redis client
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(errors.ErrUnavailable, "redis %s: %v", cfg.Addr(), err)
	}

	return &Client{rdb: rdb}, nil
}

// NewFromClient wraps an existing connection
func NewFromClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks Redis connectivity
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Set stores a JSON-encoded value with optional TTL
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "marshal redis value")
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// SetString stores a raw string with optional TTL
func (c *Client) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Get decodes a JSON value; a missing key is ErrNotFound
func (c *Client) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return errors.Wrapf(errors.ErrNotFound, "redis key %s", key)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// GetString returns a raw string; a missing key is ErrNotFound
func (c *Client) GetString(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errors.Wrapf(errors.ErrNotFound, "redis key %s", key)
	}
	return val, err
}

// Size returns the stored length of a key's value
func (c *Client) Size(ctx context.Context, key string) (int64, error) {
	return c.rdb.StrLen(ctx, key).Result()
}

// Keys scans keys matching pattern without blocking the server
func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

// Delete deletes a key
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}
