// Package cache holds the key-value accelerators placed in front of the
// people store: a shared Redis cache, an in-process ristretto cache, and a
// two-level combination of both.
//
// Entries never expire here. Anything read from a cache must also be
// obtainable from the store, so losing an entry only costs a round trip.
package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"people/config"
)

type Cache interface {
	// Get reports found=false with a nil error on a miss.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Error wraps a failure of the cache backend itself.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache.%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IDKey is the key of a serialized person.
func IDKey(id uuid.UUID) string {
	return "id::" + id.String()
}

// NicknameKey is the key of the marker recording that a nickname is taken.
func NicknameKey(nickname string) string {
	return "nickname::" + nickname
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.CacheConfig, log zerolog.Logger) (Cache, error) {
	switch cfg.Backend {
	case config.CacheMemory:
		return NewMemory(cfg.MaxCost)
	case config.CacheRedis:
		return NewRedis(ctx, cfg, log)
	case config.CacheTiered:
		local, err := NewMemory(cfg.MaxCost)
		if err != nil {
			return nil, err
		}

		remote, err := NewRedis(ctx, cfg, log)
		if err != nil {
			local.Close()
			return nil, err
		}

		return NewTiered(local, remote), nil
	default:
		return nil, fmt.Errorf("cache.New: unknown backend %q", cfg.Backend)
	}
}
