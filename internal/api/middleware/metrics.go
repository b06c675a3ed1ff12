package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// HTTPRecorder receives request metrics. *metrics.HTTPMetrics implements it.
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, statusCode int, duration float64)
	RecordHTTPResponseSize(method, path string, size int64)
}

// unmatchedPath labels requests that matched no route, keeping label cardinality bounded.
const unmatchedPath = "unmatched"

// NewMetrics records count, latency and response size per route pattern.
func NewMetrics(rec HTTPRecorder, skipper middleware.Skipper) echo.MiddlewareFunc {
	if skipper == nil {
		skipper = middleware.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rec == nil || skipper(c) {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo write the error response so the final status is known
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = unmatchedPath
			}
			method := c.Request().Method
			res := c.Response()

			rec.RecordHTTPRequest(method, path, res.Status, time.Since(start).Seconds())
			rec.RecordHTTPResponseSize(method, path, res.Size)
			return nil
		}
	}
}
