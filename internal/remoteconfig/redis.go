package remoteconfig

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisHash is the hash holding template values.
const DefaultRedisHash = "messiahx:prompts"

// RedisOptions configures a RedisSource.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Hash     string
}

// RedisSource reads values from one Redis hash, field = key.
type RedisSource struct {
	client *redis.Client
	hash   string
}

// NewRedisSource creates a Redis-backed source.
func NewRedisSource(opts RedisOptions) *RedisSource {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return NewRedisSourceFromClient(rdb, opts.Hash)
}

// NewRedisSourceFromClient wraps an existing client.
func NewRedisSourceFromClient(client *redis.Client, hash string) *RedisSource {
	if hash == "" {
		hash = DefaultRedisHash
	}
	return &RedisSource{client: client, hash: hash}
}

// Name returns the source name.
func (s *RedisSource) Name() string {
	return "redis"
}

// Fetch returns every field of the hash.
func (s *RedisSource) Fetch(ctx context.Context) (map[string]string, error) {
	values, err := s.client.HGetAll(ctx, s.hash).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL %s failed: %w", s.hash, err)
	}
	return values, nil
}

// Publish writes values into the hash. Empty values delete the field so the
// resolver falls back to its defaults.
func (s *RedisSource) Publish(ctx context.Context, values map[string]string) error {
	set := make(map[string]any)
	var del []string
	for k, v := range values {
		if v == "" {
			del = append(del, k)
			continue
		}
		set[k] = v
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(set) > 0 {
			pipe.HSet(ctx, s.hash, set)
		}
		if len(del) > 0 {
			pipe.HDel(ctx, s.hash, del...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish to %s failed: %w", s.hash, err)
	}
	return nil
}

// Ping tests the Redis connection.
func (s *RedisSource) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisSource) Close() error {
	return s.client.Close()
}
