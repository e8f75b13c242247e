package geo

import (
	"fmt"

	"github.com/golang/geo/s2"
	"github.com/terrasketch/drawtool/pkg/core"
)

// Interpolate returns points along the great circle from p1 to p2, one every spacing
// metres starting at p1. p2 is always the last element. Heights are interpolated
// linearly along the path.
func Interpolate(p1, p2 core.GeoPoint, spacing float64) ([]core.GeoPoint, error) {
	if spacing <= 0 {
		return nil, fmt.Errorf("sample spacing must be positive, got %v", spacing)
	}

	total := GreatCircleDistance(p1, p2)
	if total == 0 {
		return []core.GeoPoint{p1, p2}, nil
	}

	a := s2.PointFromLatLng(s2.LatLngFromDegrees(p1.Latitude, p1.Longitude))
	b := s2.PointFromLatLng(s2.LatLngFromDegrees(p2.Latitude, p2.Longitude))

	points := make([]core.GeoPoint, 0, int(total/spacing)+2)
	for d := 0.0; d < total; d += spacing {
		t := d / total
		ll := s2.LatLngFromPoint(s2.Interpolate(t, a, b))
		points = append(points, core.GeoPoint{
			Longitude: ll.Lng.Degrees(),
			Latitude:  ll.Lat.Degrees(),
			Height:    p1.Height + t*(p2.Height-p1.Height),
		})
	}
	// the first sample is p1 itself; keep the exact input rather than the round-tripped value
	points[0] = p1
	points = append(points, p2)

	return points, nil
}
