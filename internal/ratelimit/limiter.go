package ratelimit

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Limiter answers whether a key is within its request budget. It wraps a
// ulule/limiter instance so the window bookkeeping lives in Redis and survives
// process restarts.
type Limiter struct {
	inner *limiter.Limiter
}

// NewRedisLimiter builds a limiter backed by a Redis store.
func NewRedisLimiter(client *redis.Client, prefix string, window time.Duration, max int) (Limiter, error) {
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: prefix,
	})
	if err != nil {
		return Limiter{}, err
	}
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	return Limiter{inner: limiter.New(store, rate)}, nil
}

// NewMemoryLimiter builds an in-process limiter, used when Redis is absent.
func NewMemoryLimiter(window time.Duration, max int) Limiter {
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	return Limiter{inner: limiter.New(memorystore.NewStore(), rate)}
}

// Allow registers a hit for the key and reports whether it stayed within the
// limit. A zero-value Limiter allows everything.
func (l Limiter) Allow(ctx context.Context, key string) (allowed bool, limit, remaining int, reset time.Time, err error) {
	if l.inner == nil {
		return true, 0, 0, time.Now(), nil
	}
	c, err := l.inner.Get(ctx, key)
	if err != nil {
		return false, 0, 0, time.Now(), err
	}
	return !c.Reached, int(c.Limit), int(c.Remaining), time.Unix(c.Reset, 0), nil
}
