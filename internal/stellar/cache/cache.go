// Package cache holds the verification-result cache. A confirmed anchor is
// immutable on the ledger, so positive verification results can be cached
// aggressively; negatives are never cached because the anchor may simply not
// have confirmed yet.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docproof/internal/stellar/models"
)

// VerificationCache remembers positive verification outcomes per
// (network, document hash). Implementations must be safe for concurrent use.
type VerificationCache interface {
	GetVerified(ctx context.Context, network models.Network, documentHash string) (bool, error)
	SetVerified(ctx context.Context, network models.Network, documentHash string) error
}

const keyPrefix = "verify:"

// RedisCache is the production cache backed by Redis with TTL expiry.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a Redis-backed verification cache.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func key(network models.Network, documentHash string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, network, documentHash)
}

func (c *RedisCache) GetVerified(ctx context.Context, network models.Network, documentHash string) (bool, error) {
	_, err := c.client.Get(ctx, key(network, documentHash)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) SetVerified(ctx context.Context, network models.Network, documentHash string) error {
	// Key existence is the signal; the value is a marker.
	return c.client.Set(ctx, key(network, documentHash), "1", c.ttl).Err()
}
