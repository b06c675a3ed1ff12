package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diana-archive/gazetteer/internal/conf"
	"github.com/diana-archive/gazetteer/internal/datastore"
	"github.com/diana-archive/gazetteer/internal/datastore/repository"
	"github.com/diana-archive/gazetteer/internal/observability"
	"github.com/diana-archive/gazetteer/internal/search"
	"github.com/diana-archive/gazetteer/internal/testutil"
)

func testSettings() *conf.Settings {
	return &conf.Settings{
		WebServer: conf.WebServerSettings{
			Enabled:   true,
			Port:      "0",
			ReadOnly:  true,
			BodyLimit: "1M",
			Map: conf.MapSettings{
				Latitude:  conf.DefaultMapLatitude,
				Longitude: conf.DefaultMapLongitude,
				Zoom:      conf.DefaultMapZoom,
			},
		},
	}
}

func setupTestServer(t *testing.T, settings *conf.Settings, opts ...ServerOption) (*Server, datastore.Manager) {
	t.Helper()

	m := testutil.NewSQLite(t, "server")

	db := m.DB()
	opts = append([]ServerOption{
		WithManager(m),
		WithSearch(search.NewService(db)),
		WithRepositories(repository.NewPlaceRepository(db), repository.NewReferenceRepository(db)),
	}, opts...)

	s, err := New(settings, opts...)
	require.NoError(t, err)
	return s, m
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	req.RemoteAddr = "192.0.2.10:4711"
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.WebServer.Port = "9090"
	settings.WebServer.ReadOnly = false
	settings.WebServer.AllowedOrigins = []string{"https://maps.example.org"}
	settings.WebServer.ShutdownTimeout = 3 * time.Second

	cfg := ConfigFromSettings(settings)
	assert.Equal(t, ":9090", cfg.Address())
	assert.False(t, cfg.ReadOnly)
	assert.Equal(t, []string{"https://maps.example.org"}, cfg.AllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout)
	assert.Contains(t, cfg.String(), "readonly=false")

	// empty origins fall back to the permissive default
	cfg = ConfigFromSettings(testSettings())
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"no port", func(c *Config) { c.Port = "" }, "port is required"},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }, "read timeout"},
		{"zero write timeout", func(c *Config) { c.WriteTimeout = 0 }, "write timeout"},
		{"rate limit without rate", func(c *Config) {
			c.RateLimit = conf.RateLimitSettings{Enabled: true}
		}, "rate limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewRejectsBadBodyLimit(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.WebServer.BodyLimit = "lots"
	_, err := New(settings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body limit")
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	s, m := setupTestServer(t, testSettings())

	rec := serve(s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	require.NoError(t, m.Close())
	rec = serve(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	metrics, err := observability.NewMetrics()
	require.NoError(t, err)

	s, _ := setupTestServer(t, testSettings(), WithMetrics(metrics))

	rec := serve(s, http.MethodGet, "/api/v2/places")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = serve(s, http.MethodGet, "/api/v2/places?colour=red")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `gazetteer_http_requests_total{method="GET",path="/api/v2/places",status_code="200"} 1`)
	assert.Contains(t, body, `gazetteer_http_requests_total{method="GET",path="/api/v2/places",status_code="400"} 1`)
	assert.NotContains(t, body, `path="/metrics"`)
}

func TestNoMetricsRouteWithoutMetrics(t *testing.T) {
	t.Parallel()
	s, _ := setupTestServer(t, testSettings())

	rec := serve(s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	metrics, err := observability.NewMetrics()
	require.NoError(t, err)

	settings := testSettings()
	settings.WebServer.RateLimit = conf.RateLimitSettings{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		Burst:             2,
		ExpiresIn:         time.Minute,
	}
	s, _ := setupTestServer(t, settings, WithMetrics(metrics))

	for range 2 {
		rec := serve(s, http.MethodGet, "/api/v2/map")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serve(s, http.MethodGet, "/api/v2/map")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")

	// health checks are never limited
	rec = serve(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, http.MethodGet, "/metrics")
	assert.Contains(t, rec.Body.String(), `gazetteer_http_rate_limited_total{path="/api/v2/map"} 1`)
}

func TestSecureHeadersAndCORS(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.WebServer.AllowedOrigins = []string{"https://maps.example.org"}
	s, _ := setupTestServer(t, settings)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/map", http.NoBody)
	req.Header.Set("Origin", "https://maps.example.org")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://maps.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestGracefulShutdownOnContextCancel(t *testing.T) {
	t.Parallel()
	s, _ := setupTestServer(t, testSettings())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.StartWithGracefulShutdown(ctx) }()

	require.Eventually(t, func() bool {
		return s.Echo().ListenerAddr() != nil
	}, 5*time.Second, 10*time.Millisecond)
	addr := s.Echo().ListenerAddr().String()
	require.True(t, strings.Contains(addr, ":"))

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	err = testutil.WaitForChannel(t, done, 2*testutil.DefaultTestTimeout, "server did not shut down")
	assert.NoError(t, err)
}
