// Package memory implements a headless scene host that keeps rendered entities in
// memory. It backs the CLI replay command and the engine's tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/terrasketch/drawtool/internal/geo"
	"github.com/terrasketch/drawtool/internal/scene"
	"github.com/terrasketch/drawtool/pkg/core"
)

var (
	// ErrEntityNotFound is returned when operating on an id the host does not hold.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrDuplicateEntity is returned when the id generator repeats an id already in use.
	ErrDuplicateEntity = errors.New("entity id already in use")
)

// Viewport maps canvas pixels linearly onto longitude/latitude.
// Pixels outside [0,Width) x [0,Height) miss the globe.
type Viewport struct {
	West            float64 // longitude of pixel x=0
	North           float64 // latitude of pixel y=0
	DegreesPerPixel float64
	Width           int
	Height          int
}

// Entity is a rendered entity.
type Entity struct {
	ID        core.EntityID
	Kind      core.Kind
	Preview   bool
	Text      string
	Positions []core.GeoPoint
	Geometry  geom.Geometry
	// Cartesian holds the ECEF position of every vertex.
	Cartesian [][3]float64
}

// Config configures a Host.
type Config struct {
	Viewport Viewport
	// Terrain answers elevation queries. When nil every sample is reported as
	// outside coverage.
	Terrain scene.TerrainService
	// LevelOfDetail is used when picking heights from Terrain.
	LevelOfDetail int
	// NewID overrides the id generator.
	NewID func() core.EntityID
}

// Host is an in-memory scene.Host.
type Host struct {
	cfg Config

	mu       sync.RWMutex
	entities map[core.EntityID]*Entity
	order    []core.EntityID
}

var _ scene.Host = (*Host)(nil)

// New creates a new memory host
func New(cfg Config) *Host {
	if cfg.NewID == nil {
		cfg.NewID = func() core.EntityID { return core.EntityID(uuid.NewString()) }
	}
	return &Host{
		cfg:      cfg,
		entities: make(map[core.EntityID]*Entity),
	}
}

// PickSurfacePoint projects the pixel through the viewport. The height is taken
// from the terrain when it covers the point.
func (h *Host) PickSurfacePoint(pos core.ScreenPosition) (core.GeoPoint, bool) {
	vp := h.cfg.Viewport
	if vp.DegreesPerPixel <= 0 ||
		pos.X < 0 || pos.Y < 0 || pos.X >= float64(vp.Width) || pos.Y >= float64(vp.Height) {
		return core.GeoPoint{}, false
	}

	p := core.GeoPoint{
		Longitude: vp.West + pos.X*vp.DegreesPerPixel,
		Latitude:  vp.North - pos.Y*vp.DegreesPerPixel,
	}
	if !geo.IsValid(p) {
		return core.GeoPoint{}, false
	}

	if h.cfg.Terrain != nil {
		samples, err := h.cfg.Terrain.SampleElevations(context.Background(), []core.GeoPoint{p}, h.cfg.LevelOfDetail)
		if err == nil && len(samples) == 1 && samples[0].Valid {
			p.Height = samples[0].Position.Height
		}
	}
	return p, true
}

// SampleElevations delegates to the configured terrain.
func (h *Host) SampleElevations(ctx context.Context, points []core.GeoPoint, levelOfDetail int) ([]core.TerrainSample, error) {
	if h.cfg.Terrain != nil {
		return h.cfg.Terrain.SampleElevations(ctx, points, levelOfDetail)
	}
	samples := make([]core.TerrainSample, len(points))
	for i, p := range points {
		samples[i] = core.TerrainSample{Position: p}
	}
	return samples, nil
}

// RenderPoint adds a point entity.
func (h *Host) RenderPoint(spec scene.PointSpec) (core.EntityID, error) {
	pt, err := geo.PointGeometry(spec.Position)
	if err != nil {
		return "", fmt.Errorf("building point geometry: %w", err)
	}
	return h.add(&Entity{
		Kind:      core.KindPoint,
		Text:      spec.Label,
		Positions: []core.GeoPoint{spec.Position},
		Geometry:  pt.AsGeometry(),
	})
}

// RenderLine adds a line entity.
func (h *Host) RenderLine(spec scene.LineSpec) (core.EntityID, error) {
	if len(spec.Positions) < 2 {
		return "", fmt.Errorf("line needs at least 2 positions, got %d", len(spec.Positions))
	}
	g, err := geometryFor(core.KindLine, spec.Positions)
	if err != nil {
		return "", err
	}
	return h.add(&Entity{
		Kind:      core.KindLine,
		Preview:   spec.Preview,
		Positions: spec.Positions,
		Geometry:  g,
	})
}

// RenderPolygon adds a polygon entity.
func (h *Host) RenderPolygon(spec scene.PolygonSpec) (core.EntityID, error) {
	if len(spec.Positions) < 3 {
		return "", fmt.Errorf("polygon needs at least 3 positions, got %d", len(spec.Positions))
	}
	g, err := geometryFor(core.KindPolygon, spec.Positions)
	if err != nil {
		return "", err
	}
	return h.add(&Entity{
		Kind:      core.KindPolygon,
		Preview:   spec.Preview,
		Positions: spec.Positions,
		Geometry:  g,
	})
}

// RenderLabel adds a label entity.
func (h *Host) RenderLabel(spec scene.LabelSpec) (core.EntityID, error) {
	pt, err := geo.PointGeometry(spec.Position)
	if err != nil {
		return "", fmt.Errorf("building label geometry: %w", err)
	}
	return h.add(&Entity{
		Kind:      core.KindLabel,
		Text:      spec.Text,
		Positions: []core.GeoPoint{spec.Position},
		Geometry:  pt.AsGeometry(),
	})
}

func geometryFor(kind core.Kind, positions []core.GeoPoint) (geom.Geometry, error) {
	switch kind {
	case core.KindLine:
		ls, err := geo.LineGeometry(positions)
		if err != nil {
			return geom.Geometry{}, fmt.Errorf("building line geometry: %w", err)
		}
		return ls.AsGeometry(), nil
	case core.KindPolygon:
		poly, err := geo.PolygonGeometry(positions)
		if err != nil {
			return geom.Geometry{}, fmt.Errorf("building polygon geometry: %w", err)
		}
		return poly.AsGeometry(), nil
	default:
		return geom.Geometry{}, fmt.Errorf("cannot update positions of a %s", kind)
	}
}

func (h *Host) add(e *Entity) (core.EntityID, error) {
	e.Positions = append([]core.GeoPoint(nil), e.Positions...)
	e.Cartesian = cartesian(e.Positions)

	h.mu.Lock()
	defer h.mu.Unlock()

	e.ID = h.cfg.NewID()
	if _, exists := h.entities[e.ID]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateEntity, e.ID)
	}
	h.entities[e.ID] = e
	h.order = append(h.order, e.ID)
	return e.ID, nil
}

// UpdatePositions replaces the vertices of a line or polygon.
func (h *Host) UpdatePositions(id core.EntityID, positions []core.GeoPoint) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.entities[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}

	positions = append([]core.GeoPoint(nil), positions...)
	g, err := geometryFor(e.Kind, positions)
	if err != nil {
		return err
	}
	e.Geometry = g
	e.Positions = positions
	e.Cartesian = cartesian(positions)
	return nil
}

// RemoveEntity removes one entity.
func (h *Host) RemoveEntity(id core.EntityID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.entities[id]; !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	delete(h.entities, id)
	for i, other := range h.order {
		if other == id {
			h.order = append(h.order[:i:i], h.order[i+1:]...)
			break
		}
	}
	return nil
}

// RemoveAllEntities removes every entity.
func (h *Host) RemoveAllEntities() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entities = make(map[core.EntityID]*Entity)
	h.order = nil
	return nil
}

// Entity returns a copy of the entity with the given id.
func (h *Host) Entity(id core.EntityID) (Entity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	e, ok := h.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// Entities returns copies of all entities in creation order.
func (h *Host) Entities() []Entity {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Entity, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, *h.entities[id])
	}
	return out
}

// Len returns the number of entities.
func (h *Host) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entities)
}

func cartesian(positions []core.GeoPoint) [][3]float64 {
	out := make([][3]float64, len(positions))
	for i, p := range positions {
		x, y, z := geo.ToECEF(p)
		out[i] = [3]float64{x, y, z}
	}
	return out
}
