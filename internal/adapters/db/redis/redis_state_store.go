package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const statePrefix = "oauth_state:"

// RedisStateStore keeps OAuth state values until they are consumed or expire.
type RedisStateStore struct {
	client *redis.Client
}

func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (r *RedisStateStore) Save(ctx context.Context, state string, ttl time.Duration) error {
	return r.client.Set(ctx, statePrefix+state, "1", ttl).Err()
}

// Consume reports whether state was known, and forgets it either way.
func (r *RedisStateStore) Consume(ctx context.Context, state string) (bool, error) {
	_, err := r.client.GetDel(ctx, statePrefix+state).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}
