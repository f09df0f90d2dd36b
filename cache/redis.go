package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"people/config"
)

// Redis is shared by every replica of the service.
type Redis struct {
	rdb *redis.Client
}

// NewRedis connects to cfg.Addr() and pings it, retrying until the
// backend answers or cfg.StartupTimeout elapses.
func NewRedis(ctx context.Context, cfg config.CacheConfig, log zerolog.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.StartupTimeout

	err := backoff.RetryNotify(
		func() error { return rdb.Ping(ctx).Err() },
		backoff.WithContext(policy, ctx),
		func(err error, next time.Duration) {
			log.Warn().Err(err).Str("backend", "redis").Dur("retry_in", next).Msg("backend not ready")
		},
	)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache.NewRedis %s: %w", cfg.Addr(), err)
	}

	log.Info().Str("addr", cfg.Addr()).Msg("cache connected")

	return &Redis{rdb: rdb}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, &Error{Op: "get", Key: key, Err: err}
	}

	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return &Error{Op: "set", Key: key, Err: err}
	}

	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
