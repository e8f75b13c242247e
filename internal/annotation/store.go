// Package annotation owns the committed entities produced by the drawing tool.
package annotation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/terrasketch/drawtool/internal/scene"
	"github.com/terrasketch/drawtool/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNotFound is returned when an id is not recorded in the store.
	ErrNotFound = errors.New("annotation not found")
	// ErrDuplicateID is returned when the host issues an id the store already holds.
	ErrDuplicateID = errors.New("duplicate entity id")
)

// Store records every committed annotation and mirrors it as a host entity.
// Rendering happens under the store lock, so a label attached to a shape can never
// outlive a concurrent removal of that shape.
type Store struct {
	mu       sync.RWMutex
	renderer scene.Renderer

	items  map[core.EntityID]*core.Annotation
	order  []core.EntityID
	labels map[core.EntityID][]core.EntityID // shape -> attached labels

	committed metric.Int64Counter
	stale     metric.Int64Counter
}

// NewStore creates an empty store rendering through r.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewStore(r scene.Renderer) (*Store, error) {
	s := &Store{
		renderer: r,
		items:    make(map[core.EntityID]*core.Annotation),
		labels:   make(map[core.EntityID][]core.EntityID),
	}

	m := meter()

	var err error
	s.committed, err = m.Int64Counter(
		"annotations.committed",
		metric.WithDescription("Total annotations committed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating committed counter: %w", err)
	}

	s.stale, err = m.Int64Counter(
		"annotations.labels.stale",
		metric.WithDescription("Total label writes dropped because the target was removed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stale counter: %w", err)
	}

	return s, nil
}

// AddPoint renders a point with an optional label.
func (s *Store) AddPoint(pos core.GeoPoint, label string) (core.EntityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.renderer.RenderPoint(scene.PointSpec{Position: pos, Label: label})
	if err != nil {
		return "", fmt.Errorf("rendering point: %w", err)
	}
	return s.commit(&core.Annotation{ID: id, Kind: core.KindPoint, Positions: []core.GeoPoint{pos}, Text: label})
}

// AddLine renders a permanent path through the vertices.
func (s *Store) AddLine(vertices []core.GeoPoint) (core.EntityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions := clonePositions(vertices)
	id, err := s.renderer.RenderLine(scene.LineSpec{Positions: positions})
	if err != nil {
		return "", fmt.Errorf("rendering line: %w", err)
	}
	return s.commit(&core.Annotation{ID: id, Kind: core.KindLine, Positions: positions})
}

// AddPolygon renders a permanent polygon through the vertices.
func (s *Store) AddPolygon(vertices []core.GeoPoint) (core.EntityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions := clonePositions(vertices)
	id, err := s.renderer.RenderPolygon(scene.PolygonSpec{Positions: positions})
	if err != nil {
		return "", fmt.Errorf("rendering polygon: %w", err)
	}
	return s.commit(&core.Annotation{ID: id, Kind: core.KindPolygon, Positions: positions})
}

// AddLabel renders a free-standing label.
func (s *Store) AddLabel(text string, pos core.GeoPoint) (core.EntityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addLabel(text, pos, "")
}

// AttachLabel renders a label belonging to target. If target has been removed the
// write is dropped and ok is false; that is not an error.
func (s *Store) AttachLabel(target core.EntityID, text string, pos core.GeoPoint) (id core.EntityID, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[target]; !exists {
		s.stale.Add(context.Background(), 1)
		return "", false, nil
	}

	id, err = s.addLabel(text, pos, target)
	if err != nil {
		return "", false, err
	}
	s.labels[target] = append(s.labels[target], id)
	return id, true, nil
}

func (s *Store) addLabel(text string, pos core.GeoPoint, target core.EntityID) (core.EntityID, error) {
	id, err := s.renderer.RenderLabel(scene.LabelSpec{Text: text, Position: pos})
	if err != nil {
		return "", fmt.Errorf("rendering label: %w", err)
	}
	return s.commit(&core.Annotation{ID: id, Kind: core.KindLabel, Positions: []core.GeoPoint{pos}, Text: text, Target: target})
}

// commit records a freshly rendered entity. If it cannot be recorded the host
// entity is removed again so the store and the host agree. A duplicate id means
// the host replaced the entity the store already held, so that record goes too.
// Must be called with s.mu held.
func (s *Store) commit(a *core.Annotation) (core.EntityID, error) {
	id, err := s.record(a)
	if err == nil {
		return id, nil
	}
	if a.ID == "" {
		return "", err
	}
	if errors.Is(err, ErrDuplicateID) {
		return "", errors.Join(err, s.remove(a.ID))
	}
	if rerr := s.renderer.RemoveEntity(a.ID); rerr != nil {
		err = errors.Join(err, fmt.Errorf("removing entity %s: %w", a.ID, rerr))
	}
	return "", err
}

// record must be called with s.mu held.
func (s *Store) record(a *core.Annotation) (core.EntityID, error) {
	if a.ID == "" {
		return "", errors.New("host returned an empty entity id")
	}
	if _, exists := s.items[a.ID]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
	}
	s.items[a.ID] = a
	s.order = append(s.order, a.ID)
	s.committed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", a.Kind.String())))
	return a.ID, nil
}

// Remove forgets the annotation and removes its host entity. Labels attached to a
// shape are removed with it.
func (s *Store) Remove(id core.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remove(id)
}

// remove must be called with s.mu held.
func (s *Store) remove(id core.EntityID) error {
	a, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	ids := append([]core.EntityID{id}, s.labels[id]...)
	delete(s.labels, id)
	if a.Target != "" {
		s.labels[a.Target] = without(s.labels[a.Target], id)
	}

	var errs []error
	for _, rid := range ids {
		delete(s.items, rid)
		s.order = without(s.order, rid)
		if err := s.renderer.RemoveEntity(rid); err != nil {
			errs = append(errs, fmt.Errorf("removing entity %s: %w", rid, err))
		}
	}
	return errors.Join(errs...)
}

// ClearAll forgets every annotation and asks the host to remove all entities.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[core.EntityID]*core.Annotation)
	s.labels = make(map[core.EntityID][]core.EntityID)
	s.order = nil

	if err := s.renderer.RemoveAllEntities(); err != nil {
		return fmt.Errorf("removing all entities: %w", err)
	}
	return nil
}

// Get returns a copy of the annotation.
func (s *Store) Get(id core.EntityID) (core.Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.items[id]
	if !ok {
		return core.Annotation{}, false
	}
	return copyAnnotation(a), true
}

// Has reports whether id is recorded.
func (s *Store) Has(id core.EntityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

// LabelsOf returns the labels attached to a shape.
func (s *Store) LabelsOf(id core.EntityID) []core.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Annotation, 0, len(s.labels[id]))
	for _, lid := range s.labels[id] {
		out = append(out, copyAnnotation(s.items[lid]))
	}
	return out
}

// List returns copies of all annotations in insertion order.
func (s *Store) List() []core.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Annotation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyAnnotation(s.items[id]))
	}
	return out
}

// Len returns the number of recorded annotations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func copyAnnotation(a *core.Annotation) core.Annotation {
	c := *a
	c.Positions = clonePositions(a.Positions)
	return c
}

func clonePositions(in []core.GeoPoint) []core.GeoPoint {
	return append([]core.GeoPoint(nil), in...)
}

func without(ids []core.EntityID, id core.EntityID) []core.EntityID {
	for i, other := range ids {
		if other == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
