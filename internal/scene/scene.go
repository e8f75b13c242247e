// Package scene declares the capabilities the drawing engine consumes from the globe host.
package scene

import (
	"context"

	"github.com/terrasketch/drawtool/pkg/core"
)

// Picker resolves a cursor position to a point on the rendered terrain.
type Picker interface {
	// PickSurfacePoint returns false when the ray misses the globe.
	PickSurfacePoint(pos core.ScreenPosition) (core.GeoPoint, bool)
}

// TerrainService answers batched elevation queries.
type TerrainService interface {
	// SampleElevations returns one sample per requested point, in request order.
	// Points outside data coverage are returned with Valid=false.
	SampleElevations(ctx context.Context, points []core.GeoPoint, levelOfDetail int) ([]core.TerrainSample, error)
}

// PointSpec describes a point entity, optionally labelled.
type PointSpec struct {
	Position core.GeoPoint
	Label    string
}

// LineSpec describes a ground-clamped path.
type LineSpec struct {
	Positions []core.GeoPoint
	Preview   bool
}

// PolygonSpec describes a filled, outlined polygon.
type PolygonSpec struct {
	Positions []core.GeoPoint
	Preview   bool
}

// LabelSpec describes a free-standing text label.
type LabelSpec struct {
	Text     string
	Position core.GeoPoint
}

// Renderer creates and removes host entities.
type Renderer interface {
	RenderPoint(spec PointSpec) (core.EntityID, error)
	RenderLine(spec LineSpec) (core.EntityID, error)
	RenderPolygon(spec PolygonSpec) (core.EntityID, error)
	RenderLabel(spec LabelSpec) (core.EntityID, error)
	// UpdatePositions replaces the vertices of an existing line or polygon in place.
	UpdatePositions(id core.EntityID, positions []core.GeoPoint) error
	RemoveEntity(id core.EntityID) error
	RemoveAllEntities() error
}

// Host bundles everything a drawing session needs from the globe.
type Host interface {
	Picker
	TerrainService
	Renderer
}
