package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultTTL applies when no ttl is configured.
const DefaultTTL = 5 * time.Minute

// Memory is an in-process cache backed by go-cache.
type Memory struct {
	store *gocache.Cache
}

// NewMemory returns an in-process cache. Expired entries are purged every
// cleanupInterval, defaulting to twice the ttl.
func NewMemory(ttl, cleanupInterval time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 2 * ttl
	}
	return &Memory{store: gocache.New(ttl, cleanupInterval)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := m.store.Get(key)
	if !found {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.store.Set(key, value, ttl)
	return nil
}

func (m *Memory) Flush(context.Context) error {
	m.store.Flush()
	return nil
}

func (m *Memory) Name() string { return BackendMemory }

// Close is a no-op. go-cache stops its janitor when the cache is collected.
func (m *Memory) Close() error { return nil }

// ItemCount returns the number of stored entries, including expired ones not yet purged.
func (m *Memory) ItemCount() int {
	return m.store.ItemCount()
}
