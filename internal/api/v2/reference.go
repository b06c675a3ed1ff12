package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/diana-archive/gazetteer/internal/logger"
)

// Reference cache keys.
const (
	cacheKeyLanguages  = "languages"
	cacheKeyPeriods    = "periods"
	cacheKeyPlaceTypes = "place-types"
)

// ListLanguages handles GET /api/v2/languages.
func (c *Controller) ListLanguages(ctx echo.Context) error {
	return c.serveReference(ctx, cacheKeyLanguages, func(rctx context.Context) (any, error) {
		langs, err := c.Refs.ListLanguages(rctx)
		if err != nil {
			return nil, err
		}
		out := make([]LanguageDTO, 0, len(langs))
		for _, l := range langs {
			out = append(out, newLanguageDTO(l))
		}
		return out, nil
	})
}

// ListPeriods handles GET /api/v2/periods.
func (c *Controller) ListPeriods(ctx echo.Context) error {
	return c.serveReference(ctx, cacheKeyPeriods, func(rctx context.Context) (any, error) {
		periods, err := c.Refs.ListPeriods(rctx)
		if err != nil {
			return nil, err
		}
		out := make([]PeriodDTO, 0, len(periods))
		for _, p := range periods {
			out = append(out, newPeriodDTO(p))
		}
		return out, nil
	})
}

// ListPlaceTypes handles GET /api/v2/place-types.
func (c *Controller) ListPlaceTypes(ctx echo.Context) error {
	return c.serveReference(ctx, cacheKeyPlaceTypes, func(rctx context.Context) (any, error) {
		types, err := c.Refs.ListPlaceTypes(rctx)
		if err != nil {
			return nil, err
		}
		out := make([]PlaceTypeDTO, 0, len(types))
		for _, t := range types {
			out = append(out, PlaceTypeDTO{ID: t.ID, Text: t.Text})
		}
		return out, nil
	})
}

// GetMapDefaults handles GET /api/v2/map.
func (c *Controller) GetMapDefaults(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.mapDefaults)
}

// serveReference answers from the reference cache, loading on a miss.
func (c *Controller) serveReference(ctx echo.Context, key string, load func(context.Context) (any, error)) error {
	if v, found := c.referenceCache.Get(key); found {
		return ctx.JSON(http.StatusOK, v)
	}

	v, err := load(ctx.Request().Context())
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to load "+key)
	}
	c.referenceCache.SetDefault(key, v)
	return ctx.JSON(http.StatusOK, v)
}

// DeleteLanguage handles DELETE /api/v2/languages/:id.
// Responds 409 while any name uses the language.
func (c *Controller) DeleteLanguage(ctx echo.Context) error {
	return c.deleteReference(ctx, "language", c.Refs.DeleteLanguage)
}

// DeletePeriod handles DELETE /api/v2/periods/:id.
// Responds 409 while any name uses the period.
func (c *Controller) DeletePeriod(ctx echo.Context) error {
	return c.deleteReference(ctx, "period", c.Refs.DeletePeriod)
}

// DeletePlaceType handles DELETE /api/v2/place-types/:id.
// Responds 409 while any place uses the type.
func (c *Controller) DeletePlaceType(ctx echo.Context) error {
	return c.deleteReference(ctx, "place type", c.Refs.DeletePlaceType)
}

func (c *Controller) deleteReference(ctx echo.Context, entity string, del func(context.Context, uint) error) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid "+entity+" id")
	}

	if err := del(ctx.Request().Context(), id); err != nil {
		return c.handleDomainError(ctx, err, "Failed to delete "+entity)
	}

	c.logger.Info(entity+" deleted", logger.Uint64("id", uint64(id)), logger.String("ip", ctx.RealIP()))
	c.invalidate(ctx, true)
	return ctx.NoContent(http.StatusNoContent)
}
