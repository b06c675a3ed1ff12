package entities

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestGeometryRoundTrip(t *testing.T) {
	t.Parallel()

	line := orb.LineString{{30.05, -1.95}, {30.07, -1.94}}
	v, err := NewGeometry(line).Value()
	require.NoError(t, err)
	require.IsType(t, "", v)
	assert.Contains(t, v.(string), `"LineString"`)

	var g Geometry
	require.NoError(t, g.Scan([]byte(v.(string))))
	assert.Equal(t, line, g.Geometry)
}

func TestGeometryNull(t *testing.T) {
	t.Parallel()

	v, err := Geometry{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	g := NewGeometry(orb.Point{1, 2})
	require.NoError(t, g.Scan(nil))
	assert.False(t, g.Valid())

	require.NoError(t, g.Scan(""))
	assert.False(t, g.Valid())

	assert.ErrorIs(t, g.Scan(42), ErrInvalidGeometry)
	assert.ErrorIs(t, g.Scan(`{"type":"Blob"}`), ErrInvalidGeometry)
}

func TestPlaceSyncEnvelope(t *testing.T) {
	t.Parallel()

	p := &Place{Geometry: NewGeometry(orb.Polygon{{{30, -2}, {30.1, -2}, {30.1, -1.9}, {30, -1.9}, {30, -2}}})}
	p.SyncEnvelope()
	require.NotNil(t, p.MinLon)
	assert.InDelta(t, 30.0, *p.MinLon, 1e-9)
	assert.InDelta(t, -2.0, *p.MinLat, 1e-9)
	assert.InDelta(t, 30.1, *p.MaxLon, 1e-9)
	assert.InDelta(t, -1.9, *p.MaxLat, 1e-9)

	p.Geometry = Geometry{}
	p.SyncEnvelope()
	assert.Nil(t, p.MinLon)
	assert.Nil(t, p.MaxLat)
}

func TestDisplayStrings(t *testing.T) {
	t.Parallel()

	en := Language{Name: strPtr("English"), Abbreviation: strPtr("en")}
	fr := Language{Name: strPtr("French"), Abbreviation: strPtr("fr")}

	p := Place{Names: []Name{
		{Text: strPtr("Avenue de la Paix"), Languages: []Language{fr, en}},
		{Text: nil},
		{Text: strPtr("Peace Avenue"), Languages: []Language{en}},
	}}

	assert.Equal(t, "Avenue de la Paix, Peace Avenue", p.Label())
	assert.Equal(t, "Avenue de la Paix (fr), (en)", p.Names[0].String())
	assert.Empty(t, p.Names[1].String())
}

func TestEvidenceInterface(t *testing.T) {
	t.Parallel()

	id := uint(9)
	all := []Evidence{
		&ImageEvidence{ID: 1, Title: strPtr("Aerial photograph"), PlaceID: &id},
		&TextEvidence{ID: 2},
		&DocumentEvidence{ID: 3, Title: strPtr("Cadastre")},
	}

	assert.Equal(t, KindImage, all[0].Kind())
	assert.Equal(t, "Aerial photograph", all[0].EvidenceTitle())
	assert.Equal(t, &id, all[0].LinkedPlaceID())
	assert.Empty(t, all[1].EvidenceTitle())
	assert.Equal(t, KindDocument, all[2].Kind())
	assert.Nil(t, all[2].LinkedPlaceID())
}

func TestGenderValid(t *testing.T) {
	t.Parallel()

	assert.True(t, GenderUnknown.Valid())
	assert.False(t, Gender("n/a").Valid())
}
