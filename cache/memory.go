package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// Memory is a process-local cache. Set is asynchronous and may drop the
// entry under contention, which callers tolerate.
type Memory struct {
	cache *ristretto.Cache
}

// NewMemory bounds the cache at maxCost bytes of values.
func NewMemory(maxCost int64) (*Memory, error) {
	// roughly ten counters per entry of a few hundred bytes
	numCounters := maxCost / 32
	if numCounters < 1000 {
		numCounters = 1000
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("cache.NewMemory: %w", err)
	}

	return &Memory{cache: c}, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := m.cache.Get(key)
	if !found {
		return nil, false, nil
	}

	value, ok := v.([]byte)
	if !ok {
		return nil, false, &Error{Op: "get", Key: key, Err: fmt.Errorf("unexpected value type %T", v)}
	}

	return value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.cache.Set(key, value, int64(len(value)))
	return nil
}

func (m *Memory) Close() error {
	m.cache.Close()
	return nil
}
