// Package cache stores search results keyed by the normalized request.
//
// Values are opaque byte slices. Three backends exist: an in-process
// go-cache store, redis for deployments running several API instances, and
// a no-op backend that disables caching.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/diana-archive/gazetteer/internal/conf"
	"github.com/diana-archive/gazetteer/internal/errors"
	"github.com/diana-archive/gazetteer/internal/logger"
)

// Backend names as used in configuration and metric labels.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Cache is a byte cache with per entry expiry.
type Cache interface {
	// Get returns the value of key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key. A ttl of zero uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Flush removes every entry owned by this cache.
	Flush(ctx context.Context) error
	// Name returns the backend name.
	Name() string
	// Close releases backend resources.
	Close() error
}

var (
	serviceLogger logger.Logger
	loggerOnce    sync.Once
)

// GetLogger returns the cache package logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logger.Global().Module("cache")
	})
	return serviceLogger
}

// New builds the backend selected by settings.
func New(settings *conf.CacheSettings) (Cache, error) {
	switch settings.Backend {
	case BackendMemory, "":
		return NewMemory(settings.TTL, settings.CleanupInterval), nil
	case BackendRedis:
		return NewRedis(RedisConfig{
			Addr:     settings.Redis.Addr,
			Password: settings.Redis.Password,
			DB:       settings.Redis.DB,
			TTL:      settings.TTL,
		})
	case BackendNone:
		return Noop{}, nil
	default:
		return nil, errors.Newf("unknown cache backend %q", settings.Backend).
			Component("cache").
			Category(errors.CategoryConfiguration).
			Build()
	}
}
