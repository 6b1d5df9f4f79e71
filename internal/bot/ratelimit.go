package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter throttles per-client interactions.
type RateLimiter interface {
	Allow(ctx context.Context, telegramID int64) (bool, error)
}

// RedisRateLimiter counts interactions per client in a fixed one-minute
// window. The counter key expires on its own, so a crashed process
// leaves no stale state behind.
type RedisRateLimiter struct {
	rdb       *redis.Client
	perMinute int
}

func NewRedisRateLimiter(rdb *redis.Client, perMinute int) *RedisRateLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	return &RedisRateLimiter{rdb: rdb, perMinute: perMinute}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, telegramID int64) (bool, error) {
	key := fmt.Sprintf("ratelimit:user:%d", telegramID)

	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("incr rate limit: %w", err)
	}
	if count == 1 {
		if err := r.rdb.Expire(ctx, key, time.Minute).Err(); err != nil {
			return false, fmt.Errorf("expire rate limit: %w", err)
		}
	}
	return count <= int64(r.perMinute), nil
}

// LocalRateLimiter is the in-process fallback used when redis is not
// configured. One token-bucket limiter per client, pruned lazily.
type LocalRateLimiter struct {
	mu        sync.Mutex
	limiters  map[int64]*rate.Limiter
	perMinute int
}

func NewLocalRateLimiter(perMinute int) *LocalRateLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	return &LocalRateLimiter{
		limiters:  make(map[int64]*rate.Limiter),
		perMinute: perMinute,
	}
}

func (l *LocalRateLimiter) Allow(_ context.Context, telegramID int64) (bool, error) {
	l.mu.Lock()
	lim, ok := l.limiters[telegramID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute)
		l.limiters[telegramID] = lim
	}
	l.mu.Unlock()
	return lim.Allow(), nil
}
