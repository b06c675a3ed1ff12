package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/bytes"
	gommonlog "github.com/labstack/gommon/log"

	mw "github.com/diana-archive/gazetteer/internal/api/middleware"
	v2 "github.com/diana-archive/gazetteer/internal/api/v2"
	"github.com/diana-archive/gazetteer/internal/buildinfo"
	"github.com/diana-archive/gazetteer/internal/conf"
	"github.com/diana-archive/gazetteer/internal/datastore"
	"github.com/diana-archive/gazetteer/internal/datastore/repository"
	"github.com/diana-archive/gazetteer/internal/logger"
	"github.com/diana-archive/gazetteer/internal/observability"
	"github.com/diana-archive/gazetteer/internal/search"
)

// healthTimeout bounds the database ping of the health check.
const healthTimeout = 2 * time.Second

// Server is the HTTP server of the gazetteer.
// It manages the Echo instance, middleware and all HTTP routes.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	logger   logger.Logger

	// Dependencies
	manager datastore.Manager
	search  *search.Service
	places  repository.PlaceRepository
	refs    repository.ReferenceRepository
	metrics *observability.Metrics

	apiController *v2.Controller

	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithManager sets the database manager used by the health check.
func WithManager(m datastore.Manager) ServerOption {
	return func(s *Server) {
		s.manager = m
	}
}

// WithSearch sets the search service.
func WithSearch(svc *search.Service) ServerOption {
	return func(s *Server) {
		s.search = svc
	}
}

// WithRepositories sets the repositories used by detail and delete routes.
func WithRepositories(places repository.PlaceRepository, refs repository.ReferenceRepository) ServerOption {
	return func(s *Server) {
		s.places = places
		s.refs = refs
	}
}

// WithMetrics sets the observability metrics for the server.
// The /metrics route is only registered when metrics are set.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	if _, err := bytes.Parse(config.BodyLimit); err != nil {
		return nil, fmt.Errorf("invalid body limit %q: %w", config.BodyLimit, err)
	}

	s := &Server{
		config:    config,
		settings:  settings,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = GetLogger()
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	// echo's own logger only reports startup noise, requests go through mw.NewRequestLogger
	s.echo.Logger.SetLevel(gommonlog.OFF)
	if config.Debug {
		s.echo.Logger.SetLevel(gommonlog.DEBUG)
	}

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	s.logger.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("read_only", config.ReadOnly),
		logger.Bool("metrics", s.metrics != nil))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())

	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP, skipMetricsRoute))
	}

	s.echo.Use(mw.NewRequestLogger(s.logger))

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins

	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))

	if rl := s.config.RateLimit; rl.Enabled {
		cfg := mw.RateLimitConfig{
			RequestsPerSecond: rl.RequestsPerSecond,
			Burst:             rl.Burst,
			ExpiresIn:         rl.ExpiresIn,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/health" || skipMetricsRoute(c)
			},
		}
		if s.metrics != nil {
			cfg.OnLimited = s.metrics.HTTP.RecordRateLimited
		}
		s.echo.Use(mw.NewRateLimiter(cfg))
	}

	s.echo.Use(mw.NewGzip())
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

func skipMetricsRoute(c echo.Context) bool {
	return c.Path() == "/metrics"
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	s.echo.GET("/health", s.healthCheck)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	apiController, err := v2.New(s.echo, s.search, s.places, s.refs,
		v2.WithReadOnly(s.config.ReadOnly),
		v2.WithMapDefaults(s.config.Map),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize API v2: %w", err)
	}
	s.apiController = apiController

	return nil
}

// healthCheck handles the server health check endpoint.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	info := buildinfo.Current()
	body := map[string]any{
		"status":         "healthy",
		"version":        info.Version(),
		"build_date":     info.BuildDate(),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	}

	if s.manager == nil {
		return c.JSON(http.StatusOK, body)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()
	if err := s.manager.Ping(ctx); err != nil {
		s.logger.Warn("health check database ping failed", logger.Error(err))
		body["status"] = "unhealthy"
		body["database"] = "unreachable"
		return c.JSON(http.StatusServiceUnavailable, body)
	}
	body["database"] = "ok"
	return c.JSON(http.StatusOK, body)
}

// Start begins serving HTTP requests in a background goroutine and returns immediately.
// Use Shutdown() to stop the server.
func (s *Server) Start() {
	go func() {
		if err := s.startBlocking(); err != nil {
			s.logger.Error("Server error", logger.Error(err))
		}
	}()
}

// startBlocking begins serving HTTP requests and blocks until the server is shut down.
func (s *Server) startBlocking() error {
	addr := s.config.Address()
	s.logger.Info("Starting HTTP server", logger.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartWithGracefulShutdown starts the server and shuts it down on SIGINT/SIGTERM
// or when ctx is cancelled.
func (s *Server) StartWithGracefulShutdown(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.startBlocking()
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutdown signal received, initiating graceful shutdown")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Error("Error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.logger.Info("Server shutdown complete")
	return nil
}

// APIController returns the v2 API controller.
func (s *Server) APIController() *v2.Controller {
	return s.apiController
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
