package importer

import (
	"context"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/diana-archive/gazetteer/internal/conf"
	"github.com/diana-archive/gazetteer/internal/datastore/entities"
	"github.com/diana-archive/gazetteer/internal/datastore/repository"
	"github.com/diana-archive/gazetteer/internal/errors"
	"github.com/diana-archive/gazetteer/internal/testutil"
)

const streets = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": 123456789012,
     "geometry": {"type": "LineString", "coordinates": [[30.05, -1.95], [30.06, -1.94]]},
     "properties": {"name": "Avenue de la Paix", "name:fr": "avenue de la  paix"}},
    {"type": "Feature",
     "geometry": {"type": "LineString", "coordinates": [[30.07, -1.95], [30.08, -1.94]]},
     "properties": {"@id": "way/42", "name": "KN 3 Rd"}}
  ]
}`

const buildings = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature",
     "geometry": {"type": "Point", "coordinates": [30.06, -1.95]},
     "properties": {"building": "yes"}}
  ]
}`

func testSettings() *conf.ImportSettings {
	return &conf.ImportSettings{
		Informant:     conf.DefaultImportInformant,
		InformantNote: conf.DefaultInformantNote,
		Comment:       conf.DefaultImportComment,
		NameNote:      conf.DefaultNameNote,
		NameKeys:      map[string]string{"name": "en", "name:fr": "fr"},
		Workers:       2,
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	return testutil.NewSQLite(t, "import").DB()
}

func memFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

type fakeMetrics struct {
	mu       sync.Mutex
	runs     map[string]int
	features map[string]int
}

func (f *fakeMetrics) RecordImportRun(status string, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[status]++
}

func (f *fakeMetrics) RecordImportFeature(placeType, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.features[placeType+"/"+outcome]++
}

func TestParseLayer(t *testing.T) {
	t.Parallel()

	l, err := ParseLayer("street = data/streets.geojson")
	require.NoError(t, err)
	assert.Equal(t, Layer{PlaceType: "street", Path: "data/streets.geojson"}, l)

	for _, bad := range []string{"", "street", "=x.geojson", "street="} {
		_, err := ParseLayer(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadSeed(t *testing.T) {
	t.Parallel()

	fs := memFS(t, map[string]string{
		"seed.yaml": `
languages:
  - {name: French, abbreviation: fr}
  - {name: German, abbreviation: de}
periods:
  - {text: colonial, start_year: 1885, end_year: 1962}
place_types: [street, market]
`,
		"bad.yaml":    "languages: [",
		"noabbr.yaml": "languages:\n  - {name: Dutch}\n",
	})

	seed, err := LoadSeed(fs, "")
	require.NoError(t, err)
	assert.Len(t, seed.Languages, 4)

	seed, err = LoadSeed(fs, "seed.yaml")
	require.NoError(t, err)
	assert.Len(t, seed.Languages, 5, "fr is not duplicated")
	assert.Equal(t, "de", seed.Languages[4].Abbreviation)
	require.Len(t, seed.Periods, 1)
	assert.Equal(t, uint16(1885), *seed.Periods[0].StartYear)
	assert.Equal(t, []string{"street", "building", "market"}, seed.PlaceTypes)

	_, err = LoadSeed(fs, "bad.yaml")
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
	_, err = LoadSeed(fs, "noabbr.yaml")
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	_, err = LoadSeed(fs, "missing.yaml")
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestFeatureNames(t *testing.T) {
	t.Parallel()

	props := geojson.Properties{
		"name":    "Avenue de la Paix",
		"name:fr": "  AVENUE de la\tpaix ",
		"name:rw": "Umuhanda w'Amahoro",
		"name:sw": 12,
	}
	keys := []string{"name", "name:fr", "name:rw", "name:sw"}
	nameKeys := map[string]string{"name": "en", "name:fr": "fr", "name:rw": "rw", "name:sw": "sw"}

	names := featureNames(props, keys, nameKeys)
	require.Len(t, names, 2)
	assert.Equal(t, "Avenue de la Paix", names[0].text)
	assert.Equal(t, []string{"en", "fr"}, names[0].abbreviations)
	assert.Equal(t, "Umuhanda w'Amahoro", names[1].text)
}

func TestSourceRef(t *testing.T) {
	t.Parallel()

	withID := geojson.NewFeature(orb.Point{1, 2})
	withID.ID = float64(123456789012)
	ref, err := sourceRef(withID)
	require.NoError(t, err)
	assert.Equal(t, "osm:123456789012", ref)

	withProp := geojson.NewFeature(orb.Point{1, 2})
	withProp.Properties["@id"] = "node/7"
	ref, err = sourceRef(withProp)
	require.NoError(t, err)
	assert.Equal(t, "osm:node/7", ref)

	anon1, err := sourceRef(geojson.NewFeature(orb.Point{1, 2}))
	require.NoError(t, err)
	anon2, err := sourceRef(geojson.NewFeature(orb.Point{1, 2}))
	require.NoError(t, err)
	other, err := sourceRef(geojson.NewFeature(orb.Point{2, 1}))
	require.NoError(t, err)
	assert.Equal(t, anon1, anon2)
	assert.NotEqual(t, anon1, other)
	assert.Contains(t, anon1, "geom:")
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDB(t)
	fs := memFS(t, map[string]string{"streets.geojson": streets, "buildings.geojson": buildings})
	m := &fakeMetrics{runs: map[string]int{}, features: map[string]int{}}
	invalidations := 0

	imp := New(db, fs, testSettings(),
		WithMetrics(m),
		WithInvalidator(func(context.Context) error { invalidations++; return nil }))
	layers := []Layer{{PlaceType: "street", Path: "streets.geojson"}, {PlaceType: "building", Path: "buildings.geojson"}}

	first, err := imp.Run(ctx, DefaultSeed(), layers)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Created)
	assert.Equal(t, map[string]int{"street": 2, "building": 1}, first.ByType)
	assert.NotEmpty(t, first.RunID)

	second, err := imp.Run(ctx, DefaultSeed(), layers)
	require.NoError(t, err)
	assert.Zero(t, second.Created)
	assert.Zero(t, second.Updated)
	assert.Equal(t, 3, second.Skipped)
	assert.NotEqual(t, first.RunID, second.RunID)

	places := repository.NewPlaceRepository(db)
	count, err := places.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	var names int64
	require.NoError(t, db.Model(&entities.Name{}).Count(&names).Error)
	assert.Equal(t, int64(2), names, "equal texts in two languages are one name")

	refs := repository.NewReferenceRepository(db)
	informants, err := refs.ListInformants(ctx)
	require.NoError(t, err)
	require.Len(t, informants, 1)
	assert.Equal(t, "OSM", *informants[0].CustomID)

	avenue, err := places.GetBySourceRef(ctx, "osm:123456789012")
	require.NoError(t, err)
	require.Len(t, avenue.Names, 1)
	assert.Len(t, avenue.Names[0].Languages, 2)
	assert.Equal(t, conf.DefaultImportComment, *avenue.Comment)

	full, err := places.GetByID(ctx, avenue.ID, repository.DepthFull)
	require.NoError(t, err)
	require.Len(t, full.Names[0].Informants, 1)
	assert.Equal(t, conf.DefaultNameNote, *full.Names[0].Note)

	assert.Equal(t, 1, invalidations)
	assert.Equal(t, 2, m.runs["success"])
	assert.Equal(t, 2, m.features["street/created"])
	assert.Equal(t, 2, m.features["street/skipped"])
}

func TestRunUpdatesExistingPlaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDB(t)
	fs := memFS(t, map[string]string{"streets.geojson": streets})
	imp := New(db, fs, testSettings())
	layers := []Layer{{PlaceType: "street", Path: "streets.geojson"}}

	_, err := imp.Run(ctx, nil, layers)
	require.NoError(t, err)

	const changed = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature",
     "geometry": {"type": "LineString", "coordinates": [[30.07, -1.95], [30.09, -1.93]]},
     "properties": {"@id": "way/42", "name": "KN 3 Rd", "name:fr": "Route KN 3"}}
  ]
}`
	require.NoError(t, afero.WriteFile(fs, "streets.geojson", []byte(changed), 0o644))

	report, err := imp.Run(ctx, nil, layers)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)

	place, err := repository.NewPlaceRepository(db).GetBySourceRef(ctx, "osm:way/42")
	require.NoError(t, err)
	assert.Len(t, place.Names, 2)
	assert.InDelta(t, 30.09, *place.MaxLon, 1e-9)
}

func TestRunErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDB(t)
	fs := memFS(t, map[string]string{"broken.geojson": `{"type": "FeatureCollection", "features": [`})

	_, err := New(db, fs, testSettings()).Run(ctx, nil, []Layer{{PlaceType: "street", Path: "broken.geojson"}})
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))

	_, err = New(db, fs, testSettings()).Run(ctx, nil, []Layer{{PlaceType: "street", Path: "absent.geojson"}})
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))

	settings := testSettings()
	settings.NameKeys = map[string]string{"name:xx": "xx"}
	_, err = New(db, afero.NewMemMapFs(), settings).Run(ctx, nil, nil)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
