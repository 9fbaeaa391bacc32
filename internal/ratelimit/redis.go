package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter is the shared-store variant for horizontally scaled
// deployments: all instances count against the same keys.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Check(ctx context.Context, userID uuid.UUID, class Class) (Result, error) {
	key := fmt.Sprintf("voxbank:ratelimit:%s:%s", userID.String(), class.Name)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, err
	}
	// First hit in the window owns setting the expiry.
	if count == 1 {
		if err := l.client.Expire(ctx, key, class.Window).Err(); err != nil {
			return Result{}, err
		}
	}

	ttl, err := l.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = class.Window
	}

	remaining := class.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(class.Max),
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl),
	}, nil
}
