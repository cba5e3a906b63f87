package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "seichat:"

// Redis keeps entries under a shared prefix. Expiry is delegated to Redis, so
// Lookup never reports stale entries.
type Redis struct {
	client *redis.Client
}

func OpenRedis(redisURL string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &Redis{client: client}, nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	buf, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return buf, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.SetTTL(ctx, key, value, 0)
}

func (r *Redis) SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Lookup(ctx context.Context, key string, _ time.Duration) (Entry, error) {
	buf, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return Entry{}, err
	}
	return Entry{Hit: true, Value: buf}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
