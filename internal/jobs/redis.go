package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 7 * 24 * time.Hour

// RedisStore is a Redis-backed Store using JSON values under a key
// prefix, with optional TTL-based cleanup of finished jobs. Suitable for
// running more than one service instance against a shared record store.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisStore
type RedisOption func(*RedisStore)

// WithTTL sets the time-to-live for job records. Set to 0 for no
// expiration. Default is 7 days.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for Redis keys. Default is "audioforge".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed job record store.
//
// Example:
//
//	store := NewRedisStore(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    WithTTL(24 * time.Hour),
//	)
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		ttl:    defaultTTL,
		prefix: "audioforge",
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Get retrieves the job record for an episode
func (s *RedisStore) Get(ctx context.Context, episodeID string) (*GenerationJob, error) {
	if episodeID == "" {
		return nil, ErrInvalidID
	}

	data, err := s.client.Get(ctx, s.jobKey(episodeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var job GenerationJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// Put saves the job record for an episode with TTL
func (s *RedisStore) Put(ctx context.Context, episodeID string, job *GenerationJob) error {
	if episodeID == "" {
		return ErrInvalidID
	}
	if job == nil {
		return errors.New("nil job")
	}

	job.UpdatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := s.client.Set(ctx, s.jobKey(episodeID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// Ping verifies the Redis connection, for readiness checks
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// jobKey generates the Redis key for an episode's job record
func (s *RedisStore) jobKey(episodeID string) string {
	return fmt.Sprintf("%s:job:%s", s.prefix, episodeID)
}
