package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diana-archive/gazetteer/internal/cache"
	"github.com/diana-archive/gazetteer/internal/conf"
	"github.com/diana-archive/gazetteer/internal/datastore/entities"
	"github.com/diana-archive/gazetteer/internal/datastore/repository"
	"github.com/diana-archive/gazetteer/internal/errors"
	"github.com/diana-archive/gazetteer/internal/search"
	"github.com/diana-archive/gazetteer/internal/testutil"
)

func strPtr(s string) *string { return &s }

// testEnv is a controller over a fresh SQLite database with a little reference data.
type testEnv struct {
	e      *echo.Echo
	c      *Controller
	places repository.PlaceRepository
	refs   repository.ReferenceRepository

	street, building *entities.PlaceType
	english, french  *entities.Language
	colonial         *entities.Period
}

func setupTestEnvironment(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	ctx := context.Background()

	db := testutil.NewSQLite(t, "api").DB()
	var err error
	env := &testEnv{
		e:      echo.New(),
		places: repository.NewPlaceRepository(db),
		refs:   repository.NewReferenceRepository(db),
	}

	env.street, err = env.refs.GetOrCreatePlaceType(ctx, "street")
	require.NoError(t, err)
	env.building, err = env.refs.GetOrCreatePlaceType(ctx, "building")
	require.NoError(t, err)
	env.english, err = env.refs.GetOrCreateLanguage(ctx, "English", "en")
	require.NoError(t, err)
	env.french, err = env.refs.GetOrCreateLanguage(ctx, "French", "fr")
	require.NoError(t, err)
	env.colonial, err = env.refs.GetOrCreatePeriod(ctx, "colonial")
	require.NoError(t, err)

	mem := cache.NewMemory(time.Minute, 0)
	t.Cleanup(func() { _ = mem.Close() })
	svc := search.NewService(db, search.WithCache(mem, time.Minute))

	env.c, err = New(env.e, svc, env.places, env.refs, opts...)
	require.NoError(t, err)
	return env
}

func (env *testEnv) place(t *testing.T, pt *entities.PlaceType, geom orb.Geometry, names ...entities.Name) uint {
	t.Helper()
	p := &entities.Place{PlaceTypeID: pt.ID, Names: names}
	if geom != nil {
		p.Geometry = entities.NewGeometry(geom)
	}
	require.NoError(t, env.places.Create(context.Background(), p))
	return p.ID
}

func name(text string, period *entities.Period, langs ...*entities.Language) entities.Name {
	n := entities.Name{Text: strPtr(text)}
	if period != nil {
		n.PeriodID = &period.ID
	}
	for _, l := range langs {
		n.Languages = append(n.Languages, *l)
	}
	return n
}

func (env *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func featureIDs(fc FeatureCollection) []uint {
	out := make([]uint, 0, len(fc.Features))
	for _, f := range fc.Features {
		out = append(out, f.ID)
	}
	return out
}

func TestSearchPlacesGeoJSON(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	avenue := env.place(t, env.street, orb.LineString{{30.05, -1.95}, {30.06, -1.95}},
		name("Avenue de la Paix", env.colonial, env.french),
		name("Peace Avenue", nil, env.english))
	env.place(t, env.building, orb.Point{30.05, -1.95}, name("Town Hall", nil, env.english))

	rec := env.do(t, http.MethodGet, "/api/v2/places?place_type=street")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get(HeaderTotalCount))
	assert.Equal(t, "MISS", rec.Header().Get(HeaderCache))

	fc := decode[FeatureCollection](t, rec)
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Equal(t, []uint{avenue}, featureIDs(fc))
	assert.Equal(t, int64(1), fc.Count)
	assert.Equal(t, 1, fc.Page)
	assert.Equal(t, 1, fc.Pages)

	f := fc.Features[0]
	assert.Equal(t, "Feature", f.Type)
	require.NotNil(t, f.Geometry)
	assert.Equal(t, "LineString", f.Geometry.Geometry().GeoJSONType())
	assert.Equal(t, "Avenue de la Paix, Peace Avenue", f.Properties.Label)

	// same request again is served from the result cache
	rec = env.do(t, http.MethodGet, "/api/v2/places?place_type=street")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get(HeaderCache))
}

func TestSearchPlacesMatchModes(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	street := env.place(t, env.street, nil, name("Main Street", nil, env.english))

	rec := env.do(t, http.MethodGet, "/api/v2/places?place_type=STRE")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uint{street}, featureIDs(decode[FeatureCollection](t, rec)))

	rec = env.do(t, http.MethodGet, "/api/v2/places/exact?place_type=stre")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[FeatureCollection](t, rec).Features)

	rec = env.do(t, http.MethodGet, "/api/v2/places/exact?place_type=Street")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uint{street}, featureIDs(decode[FeatureCollection](t, rec)))
}

func TestSearchPlacesNullGeometry(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	env.place(t, env.building, nil, name("Lost Chapel", nil, env.english))

	rec := env.do(t, http.MethodGet, "/api/v2/places")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"geometry":null`)

	// a bbox never matches a place without geometry
	rec = env.do(t, http.MethodGet, "/api/v2/places?bbox=30,-2,31,-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[FeatureCollection](t, rec).Features)
}

func TestSearchPlacesErrors(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	tests := []struct {
		name   string
		target string
	}{
		{"unknown criterion", "/api/v2/places?colour=red"},
		{"bad boolean", "/api/v2/places?is_iconic=maybe"},
		{"bad id list", "/api/v2/places?id__in=1,x"},
		{"bbox_overlap without bbox", "/api/v2/places?bbox_overlap=true"},
		{"malformed bbox", "/api/v2/places?bbox=1,2,3"},
		{"unknown source", "/api/v2/places?source=audio"},
		{"bad page", "/api/v2/places?page=0"},
		{"bad depth", "/api/v2/places?depth=7"},
		{"bad ordering", "/api/v2/places?ordering=password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.target)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			body := decode[ErrorResponse](t, rec)
			assert.Equal(t, http.StatusBadRequest, body.Code)
			assert.NotEmpty(t, body.Error)
			assert.Len(t, body.CorrelationID, 8)
		})
	}
}

func TestGetPlace(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	id := env.place(t, env.street, orb.Point{30.05, -1.95},
		name("Avenue de la Paix", env.colonial, env.french))

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/v2/places/%d", id))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	f := decode[Feature](t, rec)
	assert.Equal(t, id, f.ID)
	require.NotNil(t, f.Properties.PlaceType)
	assert.Equal(t, "street", *f.Properties.PlaceType)
	require.Len(t, f.Properties.Names, 1)
	n := f.Properties.Names[0]
	assert.Equal(t, "Avenue de la Paix (fr)", n.Display)
	require.NotNil(t, n.Period)
	assert.Equal(t, "colonial", n.Period.Text)
	require.Len(t, n.Languages, 1)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v2/places/%d?depth=0", id))
	require.Equal(t, http.StatusOK, rec.Code)
	f = decode[Feature](t, rec)
	assert.Nil(t, f.Properties.PlaceType)
	assert.Equal(t, "Avenue de la Paix", f.Properties.Label)

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"unknown id", "/api/v2/places/9999", http.StatusNotFound},
		{"non numeric id", "/api/v2/places/abc", http.StatusBadRequest},
		{"zero id", "/api/v2/places/0", http.StatusBadRequest},
		{"depth out of range", fmt.Sprintf("/api/v2/places/%d?depth=3", id), http.StatusBadRequest},
		{"depth not a number", fmt.Sprintf("/api/v2/places/%d?depth=full", id), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.target)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestReferenceListsAreCached(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t, WithReadOnly(false))

	rec := env.do(t, http.MethodGet, "/api/v2/languages")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]LanguageDTO](t, rec), 2)

	_, err := env.refs.GetOrCreateLanguage(context.Background(), "Kinyarwanda", "rw")
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, "/api/v2/languages")
	assert.Len(t, decode[[]LanguageDTO](t, rec), 2, "served from cache")

	// any reference delete flushes the lists
	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v2/periods/%d", env.colonial.ID))
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v2/languages")
	assert.Len(t, decode[[]LanguageDTO](t, rec), 3)

	rec = env.do(t, http.MethodGet, "/api/v2/periods")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]PeriodDTO](t, rec))

	rec = env.do(t, http.MethodGet, "/api/v2/place-types")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]PlaceTypeDTO](t, rec), 2)
}

func TestDeleteRoutes(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t, WithReadOnly(false))

	id := env.place(t, env.street, nil, name("Rue Courte", env.colonial, env.french))

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"place type in use", fmt.Sprintf("/api/v2/place-types/%d", env.street.ID), http.StatusConflict},
		{"period in use", fmt.Sprintf("/api/v2/periods/%d", env.colonial.ID), http.StatusConflict},
		{"language in use", fmt.Sprintf("/api/v2/languages/%d", env.french.ID), http.StatusConflict},
		{"unused place type", fmt.Sprintf("/api/v2/place-types/%d", env.building.ID), http.StatusNoContent},
		{"unknown language", "/api/v2/languages/9999", http.StatusNotFound},
		{"place", fmt.Sprintf("/api/v2/places/%d", id), http.StatusNoContent},
		{"place again", fmt.Sprintf("/api/v2/places/%d", id), http.StatusNotFound},
		{"period after its names are gone", fmt.Sprintf("/api/v2/periods/%d", env.colonial.ID), http.StatusNoContent},
	}
	for _, tt := range tests {
		rec := env.do(t, http.MethodDelete, tt.target)
		assert.Equal(t, tt.code, rec.Code, "%s: %s", tt.name, rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/api/v2/places")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[FeatureCollection](t, rec).Features)
}

func TestReadOnlyHasNoDeleteRoutes(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	id := env.place(t, env.street, nil)
	rec := env.do(t, http.MethodDelete, fmt.Sprintf("/api/v2/places/%d", id))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v2/places/%d", id))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMapDefaults(t *testing.T) {
	t.Parallel()

	env := setupTestEnvironment(t)
	rec := env.do(t, http.MethodGet, "/api/v2/map")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MapDefaults{
		Latitude:  conf.DefaultMapLatitude,
		Longitude: conf.DefaultMapLongitude,
		Zoom:      conf.DefaultMapZoom,
	}, decode[MapDefaults](t, rec))

	env = setupTestEnvironment(t, WithMapDefaults(conf.MapSettings{Latitude: 1.5, Longitude: 2.5, Zoom: 9}))
	rec = env.do(t, http.MethodGet, "/api/v2/map")
	assert.Equal(t, MapDefaults{Latitude: 1.5, Longitude: 2.5, Zoom: 9}, decode[MapDefaults](t, rec))
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	storage := errors.New(fmt.Errorf("connection refused")).
		Component("search").
		Category(errors.CategoryDatabase).
		Build()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"filter key", search.ErrInvalidFilterKey, http.StatusBadRequest},
		{"wrapped filter value", fmt.Errorf("wrap: %w", search.ErrInvalidFilterValue), http.StatusBadRequest},
		{"missing parameter", search.ErrMissingParameter, http.StatusBadRequest},
		{"invalid input", repository.ErrInvalidInput, http.StatusBadRequest},
		{"not found", repository.ErrPlaceNotFound, http.StatusNotFound},
		{"delete blocked", repository.ErrReferencedEntityDeleteBlocked, http.StatusConflict},
		{"conflict", repository.ErrConflict, http.StatusConflict},
		{"storage", storage, http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := New(echo.New(), nil, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
