package store

import (
	"context"
	"fmt"
	"time"

	"cassette/config"

	"github.com/go-redis/redis/v8"
)

// RedisStore persists collections as plain Redis string keys. Durability
// depends on the Redis instance's own persistence configuration.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings the configured Redis instance.
func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Get returns the stored value for key, or absent.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, true, nil
}

// Set writes the value for key with no expiration; collections live until
// the user clears them.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Remove deletes the value for key.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// SelfTest exercises set, get and remove against a scratch key. Used by
// the store subcommand to verify connectivity.
func (s *RedisStore) SelfTest(ctx context.Context) error {
	const key = "cassette:selftest"
	if err := s.Set(ctx, key, "ok"); err != nil {
		return err
	}
	val, found, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found || val != "ok" {
		return fmt.Errorf("unexpected self-test value: %q", val)
	}
	return s.Remove(ctx, key)
}
