package versioning

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSequence keeps one counter per model name in Redis.
type RedisSequence struct {
	client *redis.Client
}

// NewRedisSequence creates a Redis-backed sequencer.
func NewRedisSequence(client *redis.Client) *RedisSequence {
	return &RedisSequence{client: client}
}

func redisKey(modelName string) string {
	return fmt.Sprintf("sarinfer:version:%s", modelName)
}

func (s *RedisSequence) Next(ctx context.Context, modelName string) (int64, error) {
	n, err := s.client.Incr(ctx, redisKey(modelName)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment version counter: %w", err)
	}
	return n, nil
}
