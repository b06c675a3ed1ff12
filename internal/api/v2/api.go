// Package api implements the v2 JSON API of the gazetteer: place search,
// place detail, reference lists and the editorial delete routes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/diana-archive/gazetteer/internal/conf"
	"github.com/diana-archive/gazetteer/internal/datastore/repository"
	"github.com/diana-archive/gazetteer/internal/errors"
	"github.com/diana-archive/gazetteer/internal/logger"
	"github.com/diana-archive/gazetteer/internal/search"
)

// Reference lists change rarely and are served from memory.
const (
	DefaultReferenceTTL = 5 * time.Minute
	referenceCleanup    = 10 * time.Minute
)

var (
	v2Logger   logger.Logger
	loggerOnce sync.Once
)

// GetLogger returns the v2 API logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		v2Logger = logger.Global().Module("api.v2")
	})
	return v2Logger
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo   *echo.Echo
	Group  *echo.Group
	Search *search.Service
	Places repository.PlaceRepository
	Refs   repository.ReferenceRepository

	mapDefaults    MapDefaults
	readOnly       bool
	referenceTTL   time.Duration
	referenceCache *cache.Cache
	logger         logger.Logger
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithReadOnly disables (true) or enables (false) the DELETE routes.
func WithReadOnly(readOnly bool) Option {
	return func(c *Controller) {
		c.readOnly = readOnly
	}
}

// WithMapDefaults sets the viewport served by GET /map.
func WithMapDefaults(m conf.MapSettings) Option {
	return func(c *Controller) {
		c.mapDefaults = MapDefaults{Latitude: m.Latitude, Longitude: m.Longitude, Zoom: m.Zoom}
	}
}

// WithReferenceTTL sets how long reference lists are cached.
func WithReferenceTTL(ttl time.Duration) Option {
	return func(c *Controller) {
		c.referenceTTL = ttl
	}
}

// WithLogger replaces the package logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New creates the v2 controller and registers its routes under /api/v2.
func New(e *echo.Echo, svc *search.Service, places repository.PlaceRepository,
	refs repository.ReferenceRepository, opts ...Option) (*Controller, error) {
	if e == nil || svc == nil || places == nil || refs == nil {
		return nil, errors.Newf("api v2 requires echo, search service and repositories").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Controller{
		Echo:   e,
		Search: svc,
		Places: places,
		Refs:   refs,
		mapDefaults: MapDefaults{
			Latitude:  conf.DefaultMapLatitude,
			Longitude: conf.DefaultMapLongitude,
			Zoom:      conf.DefaultMapZoom,
		},
		readOnly:     true,
		referenceTTL: DefaultReferenceTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = GetLogger()
	}
	c.referenceCache = cache.New(c.referenceTTL, referenceCleanup)

	c.Group = e.Group("/api/v2")
	c.initRoutes()

	c.logger.Info("API v2 routes initialized", logger.Bool("read_only", c.readOnly))
	return c, nil
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/places", c.SearchPlaces)
	c.Group.GET("/places/exact", c.SearchPlacesExact)
	c.Group.GET("/places/:id", c.GetPlace)

	c.Group.GET("/languages", c.ListLanguages)
	c.Group.GET("/periods", c.ListPeriods)
	c.Group.GET("/place-types", c.ListPlaceTypes)
	c.Group.GET("/map", c.GetMapDefaults)

	if c.readOnly {
		return
	}
	c.Group.DELETE("/places/:id", c.DeletePlace)
	c.Group.DELETE("/languages/:id", c.DeleteLanguage)
	c.Group.DELETE("/periods/:id", c.DeletePeriod)
	c.Group.DELETE("/place-types/:id", c.DeletePlaceType)
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
}

// HandleError constructs and returns an appropriate error response
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", errorResp.CorrelationID),
		logger.String("message", message),
		logger.String("error", errorResp.Error),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if code >= http.StatusInternalServerError {
		c.logger.Error("API error", fields...)
	} else {
		c.logger.Debug("API error", fields...)
	}

	return ctx.JSON(code, errorResp)
}

// statusFor maps domain errors to HTTP status codes. Storage failures are
// reported as service unavailable for the caller to retry.
func statusFor(err error) int {
	switch {
	case search.IsUserError(err), errors.Is(err, repository.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrReferencedEntityDeleteBlocked), errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		errors.IsCategory(err, errors.CategoryDatabase):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleDomainError replies with the status statusFor picks for err.
func (c *Controller) handleDomainError(ctx echo.Context, err error, message string) error {
	return c.HandleError(ctx, err, message, statusFor(err))
}

// parseID reads the :id path parameter.
func parseID(ctx echo.Context) (uint, error) {
	raw := ctx.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New(fmt.Errorf("%w: id %q is not a positive integer", repository.ErrInvalidInput, raw)).
			Component("api").
			Category(errors.CategoryValidation).
			Context("id", raw).
			Build()
	}
	return uint(id), nil
}
