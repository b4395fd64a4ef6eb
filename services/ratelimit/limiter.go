// Package ratelimit throttles requests per key over a fixed window.
package ratelimit

import (
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/admissions/core"
)

type Limiter interface {
	// Allow records a hit on `key` and reports whether it is still within the limit.
	Allow(key string) bool
}

// New returns a Redis limiter when conf.Redis.URL is set, an in-memory one otherwise.
// The returned close func releases the Redis client, if any.
func New(conf *core.Config, logger core.Logger, prefix string) (Limiter, func() error, error) {
	limit, window := conf.RateLimit.Limit, conf.RateLimit.Window
	if conf.Redis.URL == "" {
		return NewMemoryLimiter(limit, window), func() error { return nil }, nil
	}

	opts, err := redis.ParseURL(conf.Redis.URL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parsing redis url")
	}
	client := redis.NewClient(opts)
	return NewRedisLimiter(client, logger, limit, window, prefix), client.Close, nil
}
