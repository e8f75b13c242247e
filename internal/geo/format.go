package geo

import (
	"fmt"
	"math"

	"github.com/terrasketch/drawtool/pkg/core"
)

// KilometreThreshold is the distance from which labels switch to kilometres.
const KilometreThreshold = 10000.0

// FormatCoordinate renders a point as hemisphere-suffixed degrees, e.g. "122.39W, 37.62N".
func FormatCoordinate(p core.GeoPoint) string {
	lng := fmt.Sprintf("%.2fE", math.Abs(p.Longitude))
	if p.Longitude < 0 {
		lng = fmt.Sprintf("%.2fW", math.Abs(p.Longitude))
	}
	lat := fmt.Sprintf("%.2fN", math.Abs(p.Latitude))
	if p.Latitude < 0 {
		lat = fmt.Sprintf("%.2fS", math.Abs(p.Latitude))
	}
	return lng + ", " + lat
}

// FormatDistance renders metres below 10 km and kilometres with two decimals otherwise.
func FormatDistance(metres float64) string {
	if metres < KilometreThreshold {
		return fmt.Sprintf("%.2f m", metres)
	}
	return fmt.Sprintf("%.2f km", metres/1000)
}
