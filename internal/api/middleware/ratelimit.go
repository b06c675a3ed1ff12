package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per client token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	ExpiresIn         time.Duration // idle buckets are dropped after this
	// OnLimited is called with the route path of every rejected request.
	OnLimited func(path string)
	Skipper   middleware.Skipper
}

// rateLimitResponse mirrors the error body of the v2 API.
type rateLimitResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// NewRateLimiter limits requests per client IP with an in-memory token bucket store.
func NewRateLimiter(cfg RateLimitConfig) echo.MiddlewareFunc {
	skipper := cfg.Skipper
	if skipper == nil {
		skipper = middleware.DefaultSkipper
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: skipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RequestsPerSecond),
				Burst:     cfg.Burst,
				ExpiresIn: cfg.ExpiresIn,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusForbidden, rateLimitResponse{
				Error:   "forbidden",
				Message: "unable to identify client",
				Code:    http.StatusForbidden,
			})
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			if cfg.OnLimited != nil {
				cfg.OnLimited(ctx.Path())
			}
			return ctx.JSON(http.StatusTooManyRequests, rateLimitResponse{
				Error:   "too many requests",
				Message: "rate limit exceeded, please slow down",
				Code:    http.StatusTooManyRequests,
			})
		},
	})
}
