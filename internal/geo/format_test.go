package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/terrasketch/drawtool/pkg/core"
)

func TestFormatCoordinate(t *testing.T) {
	tests := []struct {
		p    core.GeoPoint
		want string
	}{
		{core.GeoPoint{Longitude: -122.39, Latitude: 37.62}, "122.39W, 37.62N"},
		{core.GeoPoint{Longitude: 151.21, Latitude: -33.87}, "151.21E, 33.87S"},
		{core.GeoPoint{}, "0.00E, 0.00N"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCoordinate(tt.p))
	}
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "0.00 m", FormatDistance(0))
	assert.Equal(t, "1111.95 m", FormatDistance(1111.95))
	assert.Equal(t, "9999.50 m", FormatDistance(9999.5))
	assert.Equal(t, "10.00 km", FormatDistance(10000))
	assert.Equal(t, "25.00 km", FormatDistance(25000))
}

func TestArea_String(t *testing.T) {
	assert.Equal(t, "500000.00 m²", newArea(500000).String())
	assert.Equal(t, "1.2346 km²", newArea(1234567.89).String())
	assert.Equal(t, UnitSquareKilometres, newArea(1e6).Unit)
}
