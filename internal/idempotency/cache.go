// Package idempotency caches finalized snapshots by idempotency token in Redis
// so retried close requests can be answered without touching the database.
package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/settlewise/internal/models"
)

const keyPrefix = "settlewise:finalize"

// Dial creates a Redis client and verifies the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("idempotency: ping: %w", err)
	}

	return client, nil
}

// RedisCache stores snapshots as JSON under a per-settlement, per-token key.
// A nil *RedisCache or one without a client behaves as an always-empty cache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache instantiates the cache. A zero ttl keeps entries forever.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Lookup returns the snapshot remembered for the token, if any.
func (c *RedisCache) Lookup(ctx context.Context, settlementID, token string) (*models.Snapshot, bool, error) {
	if c == nil || c.client == nil || token == "" {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, Key(settlementID, token)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("idempotency: get: %w", err)
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, false, fmt.Errorf("idempotency: decode: %w", err)
	}
	return &snapshot, true, nil
}

// Remember stores the snapshot under its own token. Snapshots without a token are skipped.
func (c *RedisCache) Remember(ctx context.Context, snapshot *models.Snapshot) error {
	if c == nil || c.client == nil || snapshot.IdempotencyToken == "" {
		return nil
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("idempotency: encode: %w", err)
	}
	if err := c.client.Set(ctx, Key(snapshot.SettlementID, snapshot.IdempotencyToken), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: set: %w", err)
	}
	return nil
}

// Key is the Redis key for a settlement and token.
func Key(settlementID, token string) string {
	return strings.Join([]string{keyPrefix, settlementID, token}, ":")
}
