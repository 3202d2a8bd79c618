package endpoint

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key used when the location carries no key parameter.
const DefaultRedisKey = "diagshot:endpoint"

// RedisStore keeps the endpoint in a single Redis string key, for builds
// whose render jobs do not share a file system with the broker.
type RedisStore struct {
	client   *redis.Client
	key      string
	location string
}

// NewRedisStore connects lazily to the server described by location, e.g.
// redis://localhost:6379/0?key=ci:browser.
func NewRedisStore(location string) (*RedisStore, error) {
	opts, key, err := parseRedisLocation(location)
	if err != nil {
		return nil, err
	}
	return &RedisStore{
		client:   redis.NewClient(opts),
		key:      key,
		location: location,
	}, nil
}

// parseRedisLocation splits the key query parameter off before handing the
// URL to go-redis, which rejects options it does not know.
func parseRedisLocation(location string) (*redis.Options, string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, "", fmt.Errorf("parse redis location: %w", err)
	}

	q := u.Query()
	key := strings.TrimSpace(q.Get("key"))
	if key == "" {
		key = DefaultRedisKey
	}
	q.Del("key")
	u.RawQuery = q.Encode()

	opts, err := redis.ParseURL(u.String())
	if err != nil {
		return nil, "", fmt.Errorf("parse redis location: %w", err)
	}
	return opts, key, nil
}

// Publish sets the key without expiry. The write is acknowledged by the
// server before Publish returns.
func (s *RedisStore) Publish(ctx context.Context, addr string) error {
	if err := s.client.Set(ctx, s.key, addr, 0).Err(); err != nil {
		return fmt.Errorf("publish endpoint to redis: %w", err)
	}
	return nil
}

// Lookup reads the key and trims surrounding whitespace.
func (s *RedisStore) Lookup(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read endpoint from redis: %w", err)
	}

	addr := strings.TrimSpace(val)
	if addr == "" {
		return "", ErrEmpty
	}
	return addr, nil
}

// Remove deletes the key. Deleting a missing key is not an error.
func (s *RedisStore) Remove(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("remove endpoint from redis: %w", err)
	}
	return nil
}

// Location returns the location the store was opened with.
func (s *RedisStore) Location() string {
	return s.location
}

// Key returns the Redis key holding the record.
func (s *RedisStore) Key() string {
	return s.key
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
