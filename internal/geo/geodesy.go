package geo

import (
	"math"

	"github.com/terrasketch/drawtool/pkg/core"
)

// EarthRadius is the mean spherical radius used by every great-circle computation, in metres.
const EarthRadius = 6371000.0

// SquareMetresPerKm2 is the threshold at which areas switch from m² to km².
const SquareMetresPerKm2 = 1_000_000.0

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }

// normalizeDegrees folds an angle into [0, 360).
func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// math.Mod(-0.0000001, 360) + 360 rounds to 360
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// Bearing returns the initial great-circle bearing from one point towards another,
// in degrees in [0, 360).
func Bearing(from, to core.GeoPoint) float64 {
	lat1 := toRadians(from.Latitude)
	lat2 := toRadians(to.Latitude)
	dLon := toRadians(to.Longitude - from.Longitude)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	return normalizeDegrees(toDegrees(math.Atan2(y, x)))
}

// GreatCircleDistance returns the haversine distance between two points along the
// sphere's surface, ignoring height.
func GreatCircleDistance(p1, p2 core.GeoPoint) float64 {
	if p1.Latitude == p2.Latitude && p1.Longitude == p2.Longitude {
		return 0
	}

	lat1 := toRadians(p1.Latitude)
	lat2 := toRadians(p2.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(p2.Longitude - p1.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// SurfaceDistance combines the great-circle distance with the height difference:
// sqrt(surface² + Δheight²). It is an approximation of the 3-D length, not a geodesic.
func SurfaceDistance(p1, p2 core.GeoPoint) float64 {
	s := GreatCircleDistance(p1, p2)
	dh := p2.Height - p1.Height
	return math.Sqrt(s*s + dh*dh)
}

// VertexAngle returns the angle at vertex between the directions towards a and b,
// as bearing(vertex, a) - bearing(vertex, b) normalized into [0, 360).
func VertexAngle(a, vertex, b core.GeoPoint) float64 {
	return normalizeDegrees(Bearing(vertex, a) - Bearing(vertex, b))
}

// PolygonArea approximates the area of a polygon by fanning triangles out of the
// first vertex. Each triangle contributes |d1 * d2 * sin(angle)| / 2 where d1, d2 are
// the distances from the pivot and angle is the pivot's vertex angle.
// Fewer than three vertices yield zero.
func PolygonArea(vertices []core.GeoPoint) Area {
	n := len(vertices)
	if n < 3 {
		return newArea(0)
	}

	pivot := vertices[0]
	total := 0.0
	for i := 0; i < n-2; i++ {
		j := (i + 1) % n
		k := (i + 2) % n

		angle := toRadians(VertexAngle(vertices[j], pivot, vertices[k]))
		d1 := SurfaceDistance(vertices[j], pivot)
		d2 := SurfaceDistance(vertices[k], pivot)
		total += math.Abs(d1*d2*math.Sin(angle)) / 2
	}

	return newArea(total)
}

// Midpoint returns the component-wise mean of two points.
func Midpoint(a, b core.GeoPoint) core.GeoPoint {
	return core.GeoPoint{
		Longitude: (a.Longitude + b.Longitude) / 2,
		Latitude:  (a.Latitude + b.Latitude) / 2,
		Height:    (a.Height + b.Height) / 2,
	}
}

// Centroid folds the vertices by repeated midpoints: starting at vertex 0 the running
// value is replaced by the midpoint of itself and the next vertex. The result is
// biased towards later vertices and is not the geometric centroid.
func Centroid(vertices []core.GeoPoint) core.GeoPoint {
	if len(vertices) == 0 {
		return core.GeoPoint{}
	}
	c := vertices[0]
	for _, v := range vertices[1:] {
		c = Midpoint(c, v)
	}
	return c
}

// PathLength sums SurfaceDistance over consecutive vertices.
func PathLength(vertices []core.GeoPoint) float64 {
	total := 0.0
	for i := 1; i < len(vertices); i++ {
		total += SurfaceDistance(vertices[i-1], vertices[i])
	}
	return total
}
