package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/diana-archive/gazetteer/internal/logger"
	"github.com/diana-archive/gazetteer/internal/search"
)

// Response headers describing the result page.
const (
	HeaderTotalCount = "X-Total-Count"
	HeaderCache      = "X-Cache"
)

// SearchPlaces handles GET /api/v2/places with case-insensitive substring matching.
func (c *Controller) SearchPlaces(ctx echo.Context) error {
	return c.searchPlaces(ctx, search.MatchSubstring)
}

// SearchPlacesExact handles GET /api/v2/places/exact with case-insensitive equality matching.
func (c *Controller) SearchPlacesExact(ctx echo.Context) error {
	return c.searchPlaces(ctx, search.MatchExact)
}

func (c *Controller) searchPlaces(ctx echo.Context, mode search.MatchMode) error {
	req, err := search.RequestFromValues(ctx.QueryParams(), mode)
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid search parameters")
	}

	res, err := c.Search.Search(ctx.Request().Context(), req)
	if err != nil {
		return c.handleDomainError(ctx, err, "Search failed")
	}

	h := ctx.Response().Header()
	h.Set(HeaderTotalCount, strconv.FormatInt(res.Count, 10))
	if res.Cached {
		h.Set(HeaderCache, "HIT")
	} else {
		h.Set(HeaderCache, "MISS")
	}

	return ctx.JSON(http.StatusOK, NewFeatureCollection(res))
}

// GetPlace handles GET /api/v2/places/:id. The optional depth parameter
// selects how much of the place graph is loaded.
func (c *Controller) GetPlace(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid place id")
	}

	var depth *int
	if raw := strings.TrimSpace(ctx.QueryParam(search.ParamDepth)); raw != "" {
		d, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return c.HandleError(ctx, convErr, "depth must be 0, 1 or 2", http.StatusBadRequest)
		}
		depth = &d
	}

	place, err := c.Search.Get(ctx.Request().Context(), id, depth)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to get place")
	}
	return ctx.JSON(http.StatusOK, newFeature(place))
}

// DeletePlace handles DELETE /api/v2/places/:id. Names go with the place,
// linked evidence is kept and unlinked.
func (c *Controller) DeletePlace(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid place id")
	}

	if err := c.Places.Delete(ctx.Request().Context(), id); err != nil {
		return c.handleDomainError(ctx, err, "Failed to delete place")
	}

	c.logger.Info("place deleted", logger.Uint64("id", uint64(id)), logger.String("ip", ctx.RealIP()))
	c.invalidate(ctx, false)
	return ctx.NoContent(http.StatusNoContent)
}

// invalidate drops cached search pages, and the reference lists when
// references changed. Failures only cost freshness until the TTL expires.
func (c *Controller) invalidate(ctx echo.Context, references bool) {
	if references {
		c.referenceCache.Flush()
	}
	if err := c.Search.Invalidate(ctx.Request().Context()); err != nil {
		c.logger.Warn("failed to invalidate search cache", logger.Error(err))
	}
}
