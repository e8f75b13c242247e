// pkg/core/geopoint.go
package core

// GeoPoint is a geodetic position on or above the reference ellipsoid.
type GeoPoint struct {
	Longitude float64 `json:"lon"` // degrees
	Latitude  float64 `json:"lat"` // degrees
	Height    float64 `json:"h"`   // metres above the ellipsoid
}

// WithHeight returns a copy of p at height h.
func (p GeoPoint) WithHeight(h float64) GeoPoint {
	p.Height = h
	return p
}

// ScreenPosition is a pixel coordinate on the host canvas.
type ScreenPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TerrainSample is one element of a batched elevation response.
// Valid is false when the terrain provider has no data for Position.
type TerrainSample struct {
	Position GeoPoint
	Valid    bool
}

// EntityID identifies an entity rendered by the scene host.
type EntityID string
