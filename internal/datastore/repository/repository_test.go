package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/diana-archive/gazetteer/internal/datastore/entities"
	"github.com/diana-archive/gazetteer/internal/errors"
	"github.com/diana-archive/gazetteer/internal/testutil"
)

func strPtr(s string) *string { return &s }

// setupTestDB opens a migrated SQLite database in a temp dir.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	return testutil.NewSQLite(t, "test").DB()
}

type fixture struct {
	db       *gorm.DB
	places   PlaceRepository
	refs     ReferenceRepository
	evidence EvidenceRepository

	street   *entities.PlaceType
	building *entities.PlaceType
	english  *entities.Language
	french   *entities.Language
	colonial *entities.Period
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db := setupTestDB(t)
	f := &fixture{
		db:       db,
		places:   NewPlaceRepository(db),
		refs:     NewReferenceRepository(db),
		evidence: NewEvidenceRepository(db),
	}

	var err error
	f.street, err = f.refs.GetOrCreatePlaceType(ctx, "street")
	require.NoError(t, err)
	f.building, err = f.refs.GetOrCreatePlaceType(ctx, "building")
	require.NoError(t, err)
	f.english, err = f.refs.GetOrCreateLanguage(ctx, "English", "en")
	require.NoError(t, err)
	f.french, err = f.refs.GetOrCreateLanguage(ctx, "French", "fr")
	require.NoError(t, err)
	f.colonial, err = f.refs.GetOrCreatePeriod(ctx, "colonial")
	require.NoError(t, err)
	return f
}

func (f *fixture) namedPlace(t *testing.T, text string) *entities.Place {
	t.Helper()
	p := &entities.Place{
		PlaceTypeID: f.street.ID,
		Geometry:    entities.NewGeometry(orb.LineString{{30.05, -1.95}, {30.06, -1.94}}),
		Names: []entities.Name{{
			Text:      strPtr(text),
			PeriodID:  &f.colonial.ID,
			Languages: []entities.Language{*f.english},
		}},
	}
	require.NoError(t, f.places.Create(context.Background(), p))
	return p
}

func TestPlaceCreateAndExpand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	p := f.namedPlace(t, "Main St")
	require.NotZero(t, p.ID)
	require.NotNil(t, p.MinLon, "envelope synced on create")

	flat, err := f.places.GetByID(ctx, p.ID, DepthFlat)
	require.NoError(t, err)
	assert.Nil(t, flat.PlaceType)
	require.Len(t, flat.Names, 1)
	assert.Empty(t, flat.Names[0].Languages)
	assert.Equal(t, "Main St", flat.Label())

	rel, err := f.places.GetByID(ctx, p.ID, DepthRelations)
	require.NoError(t, err)
	require.NotNil(t, rel.PlaceType)
	assert.Equal(t, "street", rel.PlaceType.Text)
	assert.Empty(t, rel.Names[0].Languages)

	full, err := f.places.GetByID(ctx, p.ID, 7)
	require.NoError(t, err)
	require.Len(t, full.Names[0].Languages, 1)
	assert.Equal(t, "en", *full.Names[0].Languages[0].Abbreviation)
	require.NotNil(t, full.Names[0].Period)
	assert.Equal(t, "colonial", full.Names[0].Period.Text)

	_, err = f.places.GetByID(ctx, 9999, DepthFlat)
	require.ErrorIs(t, err, ErrPlaceNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlaceCreateRequiresType(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	err := f.places.Create(context.Background(), &entities.Place{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = f.places.Create(context.Background(), &entities.Place{PlaceTypeID: 4242})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPlaceGetManyKeepsOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	a := f.namedPlace(t, "A")
	b := f.namedPlace(t, "B")
	c := f.namedPlace(t, "C")

	got, err := f.places.GetMany(ctx, []uint{c.ID, 9999, a.ID, b.ID}, DepthFlat)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []uint{c.ID, a.ID, b.ID}, []uint{got[0].ID, got[1].ID, got[2].ID})

	empty, err := f.places.GetMany(ctx, nil, DepthFull)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPlaceUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	p := f.namedPlace(t, "Main St")
	created := p.CreatedAt

	p.Corrected = true
	p.Description = strPtr("tarmac since 1958")
	p.Geometry = entities.NewGeometry(orb.Point{30.1, -1.9})
	require.NoError(t, f.places.Update(ctx, p))

	got, err := f.places.GetByID(ctx, p.ID, DepthFlat)
	require.NoError(t, err)
	assert.True(t, got.Corrected)
	assert.Equal(t, "tarmac since 1958", *got.Description)
	assert.InDelta(t, 30.1, *got.MinLon, 1e-9)
	assert.WithinDuration(t, created, got.CreatedAt, time.Second)
	assert.Len(t, got.Names, 1)

	missing := &entities.Place{ID: 777, PlaceTypeID: f.street.ID}
	assert.ErrorIs(t, f.places.Update(ctx, missing), ErrPlaceNotFound)
}

func TestPlaceGetBySourceRef(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	p := &entities.Place{PlaceTypeID: f.building.ID, SourceRef: strPtr("way/42")}
	require.NoError(t, f.places.Create(ctx, p))

	got, err := f.places.GetBySourceRef(ctx, "way/42")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	dup := &entities.Place{PlaceTypeID: f.building.ID, SourceRef: strPtr("way/42")}
	assert.ErrorIs(t, f.places.Create(ctx, dup), ErrConflict)

	_, err = f.places.GetBySourceRef(ctx, "way/43")
	assert.ErrorIs(t, err, ErrPlaceNotFound)
}

func TestAddAndDeleteName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	p := f.namedPlace(t, "Main St")
	n := &entities.Name{Text: strPtr("Rue Principale"), Languages: []entities.Language{*f.french}}
	require.NoError(t, f.places.AddName(ctx, p.ID, n))
	assert.Equal(t, p.ID, n.PlaceID)

	got, err := f.places.GetByID(ctx, p.ID, DepthFlat)
	require.NoError(t, err)
	assert.Equal(t, "Main St, Rue Principale", got.Label())

	require.NoError(t, f.places.DeleteName(ctx, n.ID))
	assert.ErrorIs(t, f.places.DeleteName(ctx, n.ID), ErrNameNotFound)
	assert.ErrorIs(t, f.places.AddName(ctx, 9999, &entities.Name{}), ErrPlaceNotFound)

	var joins int64
	require.NoError(t, f.db.Table(entities.TableNameLanguages).Where("name_id = ?", n.ID).Count(&joins).Error)
	assert.Zero(t, joins)
}

func TestPlaceDeleteCascadesNamesAndNullsEvidence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	p := f.namedPlace(t, "Main St")
	informant, err := f.refs.GetOrCreateInformant(ctx, "inf-01", nil)
	require.NoError(t, err)
	require.NoError(t, f.places.AddName(ctx, p.ID, &entities.Name{
		Text:       strPtr("Rue Principale"),
		Informants: []entities.Informant{*informant},
	}))

	img := &entities.ImageEvidence{FilePath: "a.jpg", PlaceID: &p.ID}
	txt := &entities.TextEvidence{Body: strPtr("interview"), PlaceID: &p.ID}
	doc := &entities.DocumentEvidence{FilePath: "b.pdf", PlaceID: &p.ID}
	for _, e := range []entities.Evidence{img, txt, doc} {
		require.NoError(t, f.evidence.Create(ctx, e))
	}

	require.NoError(t, f.places.Delete(ctx, p.ID))
	assert.ErrorIs(t, f.places.Delete(ctx, p.ID), ErrPlaceNotFound)

	var names int64
	require.NoError(t, f.db.Model(&entities.Name{}).Where("place_id = ?", p.ID).Count(&names).Error)
	assert.Zero(t, names)

	for _, e := range []entities.Evidence{img, txt, doc} {
		got, err := f.evidence.Get(ctx, e.Kind(), e.EvidenceID())
		require.NoError(t, err, "evidence survives place deletion")
		assert.Nil(t, got.LinkedPlaceID(), e.Kind())
	}

	// shared reference data is untouched
	_, err = f.refs.GetInformant(ctx, informant.ID)
	assert.NoError(t, err)
}

func TestPeriodDeleteProtection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	f.namedPlace(t, "Main St")

	err := f.refs.DeletePeriod(ctx, f.colonial.ID)
	require.ErrorIs(t, err, ErrReferencedEntityDeleteBlocked)
	assert.True(t, errors.IsCategory(err, errors.CategoryConflict))

	_, err = f.refs.GetPeriod(ctx, f.colonial.ID)
	require.NoError(t, err, "blocked delete leaves the period in place")

	unused, err := f.refs.GetOrCreatePeriod(ctx, "precolonial")
	require.NoError(t, err)
	require.NoError(t, f.refs.DeletePeriod(ctx, unused.ID))
	assert.ErrorIs(t, f.refs.DeletePeriod(ctx, unused.ID), ErrPeriodNotFound)
}

func TestLanguageAndPlaceTypeDeleteProtection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	f.namedPlace(t, "Main St")

	assert.ErrorIs(t, f.refs.DeleteLanguage(ctx, f.english.ID), ErrReferencedEntityDeleteBlocked)
	assert.ErrorIs(t, f.refs.DeletePlaceType(ctx, f.street.ID), ErrReferencedEntityDeleteBlocked)

	require.NoError(t, f.refs.DeleteLanguage(ctx, f.french.ID))
	require.NoError(t, f.refs.DeletePlaceType(ctx, f.building.ID))
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	again, err := f.refs.GetOrCreateLanguage(ctx, "Anglais", "en")
	require.NoError(t, err)
	assert.Equal(t, f.english.ID, again.ID)
	assert.Equal(t, "English", *again.Name)

	langs, err := f.refs.ListLanguages(ctx)
	require.NoError(t, err)
	assert.Len(t, langs, 2)

	_, err = f.refs.GetOrCreateLanguage(ctx, "Nameless", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = f.refs.CreateLanguage(ctx, &entities.Language{Name: strPtr("Français"), Abbreviation: strPtr("fr")})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetOrCreateConcurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	const workers = 8
	ids := make([]uint, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Go(func() {
			pt, err := f.refs.GetOrCreatePlaceType(ctx, "bridge")
			if assert.NoError(t, err) {
				ids[i] = pt.ID
			}
		})
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestInformantAndAuthorDeleteDetach(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	informant := &entities.Informant{CustomID: strPtr("inf-7"), Gender: entities.GenderFemale}
	require.NoError(t, f.refs.CreateInformant(ctx, informant))
	author := &entities.Author{Name: "J. Nsengimana"}
	require.NoError(t, f.refs.CreateAuthor(ctx, author))

	txt := &entities.TextEvidence{
		Title:      strPtr("Interview"),
		Authors:    []entities.Author{*author},
		Informants: []entities.Informant{*informant},
	}
	require.NoError(t, f.evidence.Create(ctx, txt))

	require.NoError(t, f.refs.DeleteInformant(ctx, informant.ID))
	require.NoError(t, f.refs.DeleteAuthor(ctx, author.ID))

	got, err := f.evidence.Get(ctx, entities.KindText, txt.ID)
	require.NoError(t, err)
	assert.Empty(t, got.(*entities.TextEvidence).Authors)
	assert.Empty(t, got.(*entities.TextEvidence).Informants)

	assert.ErrorIs(t, f.refs.DeleteInformant(ctx, informant.ID), ErrInformantNotFound)
	assert.ErrorIs(t, f.refs.DeleteAuthor(ctx, author.ID), ErrAuthorNotFound)

	bad := &entities.Informant{Gender: entities.Gender("robot")}
	assert.ErrorIs(t, f.refs.CreateInformant(ctx, bad), ErrInvalidInput)
}

func TestEvidenceLinking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	p := f.namedPlace(t, "Main St")
	img := &entities.ImageEvidence{FilePath: "scan.tif", Title: strPtr("Aerial 1962")}
	require.NoError(t, f.evidence.Create(ctx, img))

	require.NoError(t, f.evidence.LinkPlace(ctx, entities.KindImage, img.ID, p.ID))
	byPlace, err := f.evidence.ListForPlaces(ctx, []uint{p.ID})
	require.NoError(t, err)
	require.Len(t, byPlace[p.ID], 1)
	assert.Equal(t, "Aerial 1962", byPlace[p.ID][0].EvidenceTitle())

	require.NoError(t, f.evidence.UnlinkPlace(ctx, entities.KindImage, img.ID))
	byPlace, err = f.evidence.ListForPlaces(ctx, []uint{p.ID})
	require.NoError(t, err)
	assert.Empty(t, byPlace[p.ID])

	assert.ErrorIs(t, f.evidence.LinkPlace(ctx, entities.KindImage, img.ID, 9999), ErrPlaceNotFound)
	assert.ErrorIs(t, f.evidence.LinkPlace(ctx, entities.KindImage, 9999, p.ID), ErrEvidenceNotFound)
	assert.ErrorIs(t, f.evidence.UnlinkPlace(ctx, "video", img.ID), ErrInvalidEvidenceKind)

	_, err = f.evidence.Get(ctx, "video", img.ID)
	assert.ErrorIs(t, err, ErrInvalidEvidenceKind)

	require.NoError(t, f.evidence.Delete(ctx, entities.KindImage, img.ID))
	_, err = f.evidence.Get(ctx, entities.KindImage, img.ID)
	assert.ErrorIs(t, err, ErrEvidenceNotFound)
}

func TestWithTxRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	sentinel := errors.NewStd("abort")
	err := f.db.Transaction(func(tx *gorm.DB) error {
		p := &entities.Place{PlaceTypeID: f.street.ID}
		if err := f.places.WithTx(tx).Create(ctx, p); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	n, err := f.places.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
