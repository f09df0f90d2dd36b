package cache

import (
	"context"
	"errors"
)

// Tiered reads the local cache first and falls back to the remote one,
// promoting remote hits. Writes go to both.
type Tiered struct {
	local  Cache
	remote Cache
}

func NewTiered(local, remote Cache) *Tiered {
	return &Tiered{local: local, remote: remote}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if value, found, err := t.local.Get(ctx, key); err == nil && found {
		return value, true, nil
	}

	value, found, err := t.remote.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}

	_ = t.local.Set(ctx, key, value)

	return value, true, nil
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte) error {
	_ = t.local.Set(ctx, key, value)

	return t.remote.Set(ctx, key, value)
}

func (t *Tiered) Close() error {
	return errors.Join(t.local.Close(), t.remote.Close())
}
