package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) {
		o.PoolSize = n
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) {
		o.DialTimeout = d
	}
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) {
		o.ReadTimeout = d
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *redis.Options) {
		o.WriteTimeout = d
	}
}

// New parses a redis:// or rediss:// URL, opens a pooled client and verifies
// connectivity with PING. The client is closed if the ping fails.
func New(ctx context.Context, url string, opts ...Option) (*redis.Client, error) {
	const op = "redis.New"

	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse url: %w", op, err)
	}

	for _, opt := range opts {
		opt(ropts)
	}

	client := redis.NewClient(ropts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	return client, nil
}
