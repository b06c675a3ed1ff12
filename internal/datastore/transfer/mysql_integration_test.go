//go:build integration

package transfer

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/diana-archive/gazetteer/internal/datastore"
	"github.com/diana-archive/gazetteer/internal/datastore/entities"
	"github.com/diana-archive/gazetteer/internal/datastore/repository"
	"github.com/diana-archive/gazetteer/internal/testutil"
)

func startMySQL(t *testing.T) datastore.Manager {
	t.Helper()
	ctx := context.Background()

	container, err := tcmysql.Run(ctx, "mysql:8.4",
		tcmysql.WithDatabase("gazetteer"),
		tcmysql.WithUsername("gazetteer"),
		tcmysql.WithPassword("gazetteer"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	m, err := datastore.NewMySQLManager(&datastore.MySQLConfig{
		Host:     host,
		Port:     port.Port(),
		Username: "gazetteer",
		Password: "gazetteer",
		Database: "gazetteer",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestTransferSQLiteToMySQL(t *testing.T) {
	ctx := context.Background()

	source := testutil.NewSQLite(t, "source")
	target := startMySQL(t)

	refs := repository.NewReferenceRepository(source.DB())
	street, err := refs.GetOrCreatePlaceType(ctx, "street")
	require.NoError(t, err)
	kinyarwanda, err := refs.GetOrCreateLanguage(ctx, "Kinyarwanda", "rw")
	require.NoError(t, err)
	require.NoError(t, repository.NewPlaceRepository(source.DB()).Create(ctx, &entities.Place{
		PlaceTypeID: street.ID,
		Geometry:    entities.NewGeometry(orb.Point{30.06, -1.95}),
		Names: []entities.Name{{
			Text:      strPtr("Umuhanda wa Kimihurura"),
			Languages: []entities.Language{*kinyarwanda},
		}},
	}))

	tr, err := New(source, target)
	require.NoError(t, err)
	_, err = tr.Run(ctx)
	require.NoError(t, err)

	mismatches, err := tr.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	// rerun skips duplicates through INSERT IGNORE and ON DUPLICATE KEY
	again, err := tr.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Copied())

	p, err := repository.NewPlaceRepository(target.DB()).GetByID(ctx, 1, repository.DepthFull)
	require.NoError(t, err)
	assert.Equal(t, "Umuhanda wa Kimihurura", p.Label())
	require.Len(t, p.Names[0].Languages, 1)
}
