package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	"github.com/redis/go-redis/v9"
)

// RedisAttemptLimiter is a fixed-window counter. The window starts with the
// first attempt and is not extended by later ones.
type RedisAttemptLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

func NewRedisAttemptLimiter(client *redis.Client, max int, window time.Duration) *RedisAttemptLimiter {
	return &RedisAttemptLimiter{client: client, max: max, window: window}
}

// Hit returns ErrRateLimited once key has used up its attempts. Any other
// error means Redis could not be reached.
func (r *RedisAttemptLimiter) Hit(ctx context.Context, scope, key string) error {
	k := attemptKey(scope, key)

	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("attempt limiter: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, k, r.window).Err(); err != nil {
			return fmt.Errorf("attempt limiter: %w", err)
		}
	}
	if count > int64(r.max) {
		return customErrors.ErrRateLimited
	}
	return nil
}

func (r *RedisAttemptLimiter) Reset(ctx context.Context, scope, key string) error {
	return r.client.Del(ctx, attemptKey(scope, key)).Err()
}

// Keys carry a digest, not the address itself.
func attemptKey(scope, key string) string {
	sum := sha256.Sum256([]byte(key))
	return "attempts:" + scope + ":" + hex.EncodeToString(sum[:16])
}
