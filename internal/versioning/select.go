package versioning

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"sarinfer/internal/config"
	"sarinfer/internal/storage"
)

// FromConfig picks the sequencer for the configured strategy. The store
// strategy keeps counters next to the metadata; with the in-memory backend
// that is a ProcessCounter. redisClient is only needed by the redis
// strategy.
func FromConfig(strategy string, backend *storage.Backend, redisClient *redis.Client) (Sequencer, error) {
	switch strategy {
	case config.VersionStrategyProcess:
		return NewProcessCounter(), nil

	case config.VersionStrategyRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("the %s version strategy needs a Redis client", strategy)
		}
		return NewRedisSequence(redisClient), nil

	case config.VersionStrategyStore:
		switch {
		case backend.Mongo != nil:
			return NewMongoSequence(backend.Mongo.Database().Collection(CountersCollection)), nil
		case backend.DB != nil:
			return NewPostgresSequence(backend.DB.Conn()), nil
		default:
			return NewProcessCounter(), nil
		}
	}
	return nil, fmt.Errorf("unknown version strategy %q", strategy)
}
