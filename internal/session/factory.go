package session

import "time"

// Driver selects the session store backing.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
)

// NewStore creates a session store for the given driver. The redis driver
// requires WithRedisClient.
func NewStore(driver Driver, opts ...StoreOption) (Store, error) {
	config := &storeConfig{}

	for _, opt := range opts {
		opt(config)
	}

	switch driver {
	case DriverMemory:
		return newMemoryStore(config.defaultModel), nil

	case DriverRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		ttl := config.redisTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		return &redisStore{
			client:       config.redisClient,
			ttl:          ttl,
			defaultModel: config.defaultModel,
		}, nil

	default:
		return nil, ErrInvalidDriver
	}
}
