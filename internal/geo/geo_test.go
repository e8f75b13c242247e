package geo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terrasketch/drawtool/pkg/core"
)

func TestParseGeoPoint_ValidWithHeight(t *testing.T) {
	p, err := ParseGeoPoint("100.5,20.25,50.0")
	require.NoError(t, err)
	assert.Equal(t, core.GeoPoint{Longitude: 100.5, Latitude: 20.25, Height: 50}, p)
}

func TestParseGeoPoint_ValidWithoutHeight(t *testing.T) {
	p, err := ParseGeoPoint("-122.39, 37.62")
	require.NoError(t, err)
	assert.Equal(t, -122.39, p.Longitude)
	assert.Equal(t, 37.62, p.Latitude)
	assert.Equal(t, 0.0, p.Height)
}

func TestParseGeoPoint_Invalid(t *testing.T) {
	cases := map[string]string{
		"too few":      "100.5",
		"too many":     "1,2,3,4",
		"bad lon":      "abc,2",
		"bad lat":      "1,abc",
		"bad height":   "1,2,abc",
		"out of range": "200,95",
		"empty":        "",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGeoPoint(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCoordinates))
		})
	}
}

func TestToECEF_Equator(t *testing.T) {
	x, y, z := ToECEF(core.GeoPoint{})
	assert.InDelta(t, 6378137.0, x, 1)
	assert.InDelta(t, 0, y, 1)
	assert.InDelta(t, 0, z, 1)

	x, y, _ = ToECEF(core.GeoPoint{Longitude: 90})
	assert.InDelta(t, 0, x, 1)
	assert.InDelta(t, 6378137.0, y, 1)
}

func TestPointGeometry(t *testing.T) {
	pt, err := PointGeometry(core.GeoPoint{Longitude: 1, Latitude: 2, Height: 3})
	require.NoError(t, err)
	coords, ok := pt.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 1.0, coords.X)
	assert.Equal(t, 2.0, coords.Y)
	assert.Equal(t, 3.0, coords.Z)
}

func TestPolygonGeometry_ClosesRing(t *testing.T) {
	poly, err := PolygonGeometry([]core.GeoPoint{
		{Longitude: 0, Latitude: 0},
		{Longitude: 1, Latitude: 0},
		{Longitude: 0, Latitude: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, poly.ExteriorRing().Coordinates().Length())
}

func TestLineGeometry(t *testing.T) {
	ls, err := LineGeometry([]core.GeoPoint{{}, {Longitude: 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, ls.Coordinates().Length())
}

func TestLineGeometry_RepeatedVertex(t *testing.T) {
	p := core.GeoPoint{Longitude: 10, Latitude: 20}
	ls, err := LineGeometry([]core.GeoPoint{p, p})
	require.NoError(t, err)
	assert.Equal(t, 2, ls.Coordinates().Length())
}

func TestPolygonGeometry_CollinearRing(t *testing.T) {
	poly, err := PolygonGeometry([]core.GeoPoint{
		{Longitude: 0, Latitude: 0},
		{Longitude: 1, Latitude: 0},
		{Longitude: 2, Latitude: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, poly.ExteriorRing().Coordinates().Length())
}
