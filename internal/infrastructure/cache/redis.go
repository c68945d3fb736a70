package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnquangdev/meeting-agent/pkg/config"
)

// NewRedisClient creates a Redis client and verifies connectivity
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// RedisDedupStore marks inbound event deliveries as seen using SET NX with a
// TTL. It is best-effort: a Redis failure reports the event as unseen so
// processing always proceeds (the store's guarded transitions make duplicate
// processing harmless).
type RedisDedupStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDedupStore creates a dedup store on an existing Redis client
func NewRedisDedupStore(client *redis.Client, ttl time.Duration) *RedisDedupStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisDedupStore{client: client, ttl: ttl}
}

// Seen marks key as delivered and reports whether it had been seen already.
func (s *RedisDedupStore) Seen(ctx context.Context, key string) bool {
	ok, err := s.client.SetNX(ctx, "event_seen:"+key, "1", s.ttl).Result()
	if err != nil {
		return false
	}
	return !ok
}
