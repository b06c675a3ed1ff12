// Package api provides the HTTP server of the gazetteer.
// This package contains the server and middleware wiring while the JSON API
// endpoints are organized in the v2 subpackage.
package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/diana-archive/gazetteer/internal/conf"
	"github.com/diana-archive/gazetteer/internal/logger"
)

var (
	apiLogger  logger.Logger
	loggerOnce sync.Once
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		apiLogger = logger.Global().Module("api")
	})
	return apiLogger
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "1M"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Server binding
	Host string // Host to bind to (empty for all interfaces)
	Port string // Port to listen on

	AllowedOrigins []string // CORS allowed origins
	ReadOnly       bool     // disables the DELETE routes

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BodyLimit string // Maximum request body size (e.g., "1M")

	RateLimit conf.RateLimitSettings
	Map       conf.MapSettings

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            "8080",
		AllowedOrigins:  []string{"*"},
		ReadOnly:        true,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
		Map: conf.MapSettings{
			Latitude:  conf.DefaultMapLatitude,
			Longitude: conf.DefaultMapLongitude,
			Zoom:      conf.DefaultMapZoom,
		},
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()
	ws := settings.WebServer

	cfg.Port = ws.Port
	cfg.ReadOnly = ws.ReadOnly
	if len(ws.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = ws.AllowedOrigins
	}
	if ws.BodyLimit != "" {
		cfg.BodyLimit = ws.BodyLimit
	}
	if ws.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = ws.ShutdownTimeout
	}
	cfg.RateLimit = ws.RateLimit
	cfg.Map = ws.Map
	cfg.Debug = settings.Debug

	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit enabled but requests per second is %v", c.RateLimit.RequestsPerSecond)
	}
	return nil
}

// Address returns the full address string for the server to listen on.
func (c *Config) Address() string {
	if c.Host == "" {
		return ":" + c.Port
	}
	return c.Host + ":" + c.Port
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Server Config: address=%s, readonly=%v, ratelimit=%v, debug=%v",
		c.Address(), c.ReadOnly, c.RateLimit.Enabled, c.Debug)
}
