package transfer

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diana-archive/gazetteer/internal/datastore/entities"
	"github.com/diana-archive/gazetteer/internal/datastore/repository"
	"github.com/diana-archive/gazetteer/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestTransferCopiesEverything(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	source := testutil.NewSQLite(t, "source")
	target := testutil.NewSQLite(t, "target")

	refs := repository.NewReferenceRepository(source.DB())
	places := repository.NewPlaceRepository(source.DB())

	street, err := refs.GetOrCreatePlaceType(ctx, "street")
	require.NoError(t, err)
	english, err := refs.GetOrCreateLanguage(ctx, "English", "en")
	require.NoError(t, err)
	french, err := refs.GetOrCreateLanguage(ctx, "French", "fr")
	require.NoError(t, err)

	for _, text := range []string{"Avenue de la Paix", "KN 5 Rd", "Boulevard de l'Umuganda"} {
		require.NoError(t, places.Create(ctx, &entities.Place{
			PlaceTypeID: street.ID,
			Geometry:    entities.NewGeometry(orb.LineString{{30.05, -1.95}, {30.06, -1.94}}),
			Names: []entities.Name{{
				Text:      strPtr(text),
				Languages: []entities.Language{*english, *french},
			}},
		}))
	}

	tr, err := New(source, target, WithBatchSize(2))
	require.NoError(t, err)

	report, err := tr.Run(ctx)
	require.NoError(t, err)
	assert.Positive(t, report.Copied())

	mismatches, err := tr.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	// ids and associations survive the copy
	copied := repository.NewPlaceRepository(target.DB())
	p, err := copied.GetByID(ctx, 2, repository.DepthFull)
	require.NoError(t, err)
	assert.Equal(t, "KN 5 Rd", p.Label())
	require.Len(t, p.Names, 1)
	assert.Len(t, p.Names[0].Languages, 2)
	assert.True(t, p.Geometry.Valid())

	// a second run finds everything in place
	again, err := tr.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Copied())
	for _, table := range again.Tables {
		if table.Name == entities.TableNameLanguages {
			assert.Equal(t, int64(6), table.Skipped)
		}
	}
}

func TestVerifyReportsMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	source := testutil.NewSQLite(t, "source")
	target := testutil.NewSQLite(t, "target")

	_, err := repository.NewReferenceRepository(source.DB()).GetOrCreatePeriod(ctx, "colonial")
	require.NoError(t, err)

	tr, err := New(source, target)
	require.NoError(t, err)

	mismatches, err := tr.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, []CountMismatch{{Table: entities.TablePeriods, Source: 1, Target: 0}}, mismatches)
}
