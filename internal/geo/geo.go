package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/terrasketch/drawtool/pkg/core"
	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ParseGeoPoint parses a "long,lat" or "long,lat,height" string into a core.GeoPoint.
func ParseGeoPoint(coords string) (core.GeoPoint, error) {
	coordsSplit := strings.Split(strings.TrimSpace(coords), ",")
	if len(coordsSplit) < 2 || len(coordsSplit) > 3 {
		return core.GeoPoint{}, ErrInvalidCoordinates
	}
	long, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.GeoPoint{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.GeoPoint{}, ErrInvalidCoordinates
	}
	var height float64
	if len(coordsSplit) > 2 {
		height, err = strconv.ParseFloat(strings.TrimSpace(coordsSplit[2]), 64)
		if err != nil {
			return core.GeoPoint{}, ErrInvalidCoordinates
		}
	}
	p := core.GeoPoint{Longitude: long, Latitude: lat, Height: height}
	if !IsValid(p) {
		return core.GeoPoint{}, ErrInvalidCoordinates
	}
	return p, nil
}

// IsValid reports whether the point lies within [-180,180] x [-90,90].
func IsValid(p core.GeoPoint) bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// ToECEF converts a geodetic point to earth-centred earth-fixed cartesian metres,
// the frame the globe host positions entities in.
func ToECEF(p core.GeoPoint) (x, y, z float64) {
	f := wgs84.EPSG().Transform(4326, 4978)
	return f(p.Longitude, p.Latitude, p.Height)
}

// PointGeometry builds an XYZ point geometry (x=lon, y=lat, z=height).
func PointGeometry(p core.GeoPoint) (geom.Point, error) {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.Longitude, Y: p.Latitude},
		Z:    p.Height,
		Type: geom.DimXYZ,
	}, geom.DisableAllValidations)
}

// LineGeometry builds an XYZ line string through the vertices. Sketches may
// repeat a vertex, so the geometry is not validated.
func LineGeometry(vertices []core.GeoPoint) (geom.LineString, error) {
	return geom.NewLineString(sequence(vertices, false), geom.DisableAllValidations)
}

// PolygonGeometry builds an XYZ polygon whose single ring is closed on the first vertex.
// Degenerate rings (collinear or repeated vertices) are accepted.
func PolygonGeometry(vertices []core.GeoPoint) (geom.Polygon, error) {
	ring, err := geom.NewLineString(sequence(vertices, true), geom.DisableAllValidations)
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("building ring: %w", err)
	}
	return geom.NewPolygon([]geom.LineString{ring}, geom.DisableAllValidations)
}

func sequence(vertices []core.GeoPoint, closed bool) geom.Sequence {
	flat := make([]float64, 0, (len(vertices)+1)*3)
	for _, v := range vertices {
		flat = append(flat, v.Longitude, v.Latitude, v.Height)
	}
	if closed && len(vertices) > 0 {
		first := vertices[0]
		last := vertices[len(vertices)-1]
		if first != last {
			flat = append(flat, first.Longitude, first.Latitude, first.Height)
		}
	}
	return geom.NewSequence(flat, geom.DimXYZ)
}
