// Package config holds the runtime context shared by the CLI commands: the
// loaded settings and the lazily opened database, metrics, cache and search
// service.
package config

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/diana-archive/gazetteer/internal/buildinfo"
	"github.com/diana-archive/gazetteer/internal/cache"
	"github.com/diana-archive/gazetteer/internal/conf"
	"github.com/diana-archive/gazetteer/internal/datastore"
	"github.com/diana-archive/gazetteer/internal/logger"
	"github.com/diana-archive/gazetteer/internal/observability"
	"github.com/diana-archive/gazetteer/internal/search"
)

// StatsInterval is how often pool statistics and row counts are refreshed.
const StatsInterval = time.Minute

// Context holds the overall application state of one CLI invocation.
type Context struct {
	Settings *conf.Settings
	Build    *buildinfo.Context

	mu      sync.Mutex
	manager datastore.Manager
	metrics *observability.Metrics
	cache   cache.Cache
	search  *search.Service
	closers []func() error
}

// NewContext wraps settings for the commands.
func NewContext(settings *conf.Settings, build *buildinfo.Context) *Context {
	return &Context{Settings: settings, Build: build}
}

// Metrics returns the prometheus collectors, or nil when metrics are disabled.
func (c *Context) Metrics() (*observability.Metrics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metricsLocked()
}

func (c *Context) metricsLocked() (*observability.Metrics, error) {
	if c.metrics != nil || !c.Settings.Telemetry.Metrics {
		return c.metrics, nil
	}
	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}
	c.metrics = m
	return m, nil
}

// Database opens the configured database once. With migrate set the schema
// is created or updated first.
func (c *Context) Database(migrate bool) (datastore.Manager, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.databaseLocked(migrate)
}

func (c *Context) databaseLocked(migrate bool) (datastore.Manager, error) {
	if c.manager == nil {
		m, err := datastore.Open(&c.Settings.Database)
		if err != nil {
			return nil, err
		}
		c.manager = m
		c.closers = append(c.closers, m.Close)

		metrics, err := c.metricsLocked()
		if err != nil {
			return nil, err
		}
		if metrics != nil {
			if err := datastore.RegisterMetricsCallbacks(m.DB(), metrics.Datastore); err != nil {
				return nil, err
			}
		}
	}
	if migrate {
		if err := c.manager.Initialize(); err != nil {
			return nil, err
		}
	}
	return c.manager, nil
}

// Cache returns the configured result cache backend.
func (c *Context) Cache() (cache.Cache, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cacheLocked()
}

func (c *Context) cacheLocked() (cache.Cache, error) {
	if c.cache != nil {
		return c.cache, nil
	}
	cc, err := cache.New(&c.Settings.Search.Cache)
	if err != nil {
		return nil, err
	}
	c.cache = cc
	c.closers = append(c.closers, cc.Close)
	return cc, nil
}

// SearchService returns the search engine over the database, migrating the
// schema if needed.
func (c *Context) SearchService() (*search.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.search != nil {
		return c.search, nil
	}

	m, err := c.databaseLocked(true)
	if err != nil {
		return nil, err
	}
	cc, err := c.cacheLocked()
	if err != nil {
		return nil, err
	}

	s := c.Settings.Search
	opts := []search.Option{
		search.WithCache(cc, s.Cache.TTL),
		search.WithPageSizes(s.DefaultPageSize, s.MaxPageSize),
		search.WithDepths(s.DefaultDepth, s.DetailDepth),
	}
	metrics, err := c.metricsLocked()
	if err != nil {
		return nil, err
	}
	if metrics != nil {
		opts = append(opts, search.WithMetrics(metrics.Search))
	}

	c.search = search.NewService(m.DB(), opts...)
	return c.search, nil
}

// MonitorDatabase refreshes the database gauges until ctx is done. It returns
// immediately when metrics are disabled or the database was never opened.
func (c *Context) MonitorDatabase(ctx context.Context) {
	c.mu.Lock()
	m, metrics := c.manager, c.metrics
	c.mu.Unlock()

	if m == nil || metrics == nil {
		return
	}
	datastore.MonitorStats(ctx, m, metrics.Datastore, StatsInterval)
}

// Close releases everything opened through the context, newest first.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	c.manager, c.cache, c.search = nil, nil, nil

	if err := errors.Join(errs...); err != nil {
		logger.Global().Module("config").Warn("error while closing resources", logger.Error(err))
		return err
	}
	return nil
}
