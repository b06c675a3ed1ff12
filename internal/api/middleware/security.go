package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// apiCSP forbids every resource: responses are JSON and never rendered.
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// SecurityConfig holds the CORS and response header policy of the API.
type SecurityConfig struct {
	AllowedOrigins []string

	// HSTSMaxAge in seconds, 0 leaves the header out. Only sent over TLS.
	HSTSMaxAge int

	ContentSecurityPolicy string
}

// DefaultSecurityConfig allows any origin. The API is public and read mostly,
// so no credentials are accepted cross origin.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		AllowedOrigins:        []string{"*"},
		HSTSMaxAge:            365 * 24 * 60 * 60,
		ContentSecurityPolicy: apiCSP,
	}
}

// NewCORS answers preflight requests for the search and delete routes.
func NewCORS(config SecurityConfig) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: config.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderAccept, echo.HeaderContentType, echo.HeaderAuthorization},
		// clients read the page count and cache state from headers
		ExposeHeaders: []string{echo.HeaderXRequestID, "X-Total-Count", "X-Cache"},
	})
}

// NewSecureHeaders sets nosniff, frame and CSP headers on every response.
func NewSecureHeaders(config SecurityConfig) echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            config.HSTSMaxAge,
		ContentSecurityPolicy: config.ContentSecurityPolicy,
		ReferrerPolicy:        "no-referrer",
	})
}

// NewBodyLimit rejects request bodies above limit, e.g. "1M".
func NewBodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}

// NewGzip compresses responses of at least 1KiB. The metrics endpoint is
// skipped, promhttp negotiates its own encoding.
func NewGzip() echo.MiddlewareFunc {
	return middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     5,
		MinLength: 1024,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	})
}

// NewRequestID tags each request with an X-Request-ID header. An id sent by
// the client is kept.
func NewRequestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}
