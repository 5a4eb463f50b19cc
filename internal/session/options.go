package session

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreOption is a functional option for configuring a session store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	defaultModel string
	redisClient  *redis.Client
	redisTTL     time.Duration
}

// WithDefaultModel sets the model assigned to freshly created sessions.
func WithDefaultModel(model string) StoreOption {
	return func(c *storeConfig) {
		c.defaultModel = model
	}
}

// WithRedisClient sets the Redis client for the redis driver.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithRedisTTL sets the idle eviction TTL for redis-backed sessions.
func WithRedisTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.redisTTL = ttl
	}
}
