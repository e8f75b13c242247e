// Package session implements the drawing tool: a mode state machine driven by
// pointer events that previews shapes while they are sketched and commits them,
// with their measurements, to the annotation store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/terrasketch/drawtool/internal/annotation"
	"github.com/terrasketch/drawtool/internal/geo"
	"github.com/terrasketch/drawtool/internal/input"
	"github.com/terrasketch/drawtool/internal/scene"
	"github.com/terrasketch/drawtool/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// PathMeasurer computes the terrain-following length of a path.
type PathMeasurer interface {
	PathDistance(ctx context.Context, vertices []core.GeoPoint) (float64, error)
}

// Config holds the collaborators of a Session.
type Config struct {
	Picker     scene.Picker
	Renderer   scene.Renderer
	Dispatcher *input.Dispatcher
	Store      *annotation.Store
	Measurer   PathMeasurer
	Logger     *slog.Logger
	// LabelTimeout bounds each asynchronous distance computation. Zero means no limit.
	LabelTimeout time.Duration
}

// Session is one drawing tool instance.
type Session struct {
	picker       scene.Picker
	renderer     scene.Renderer
	dispatcher   *input.Dispatcher
	store        *annotation.Store
	measurer     PathMeasurer
	logger       *slog.Logger
	labelTimeout time.Duration

	mu        sync.Mutex
	mode      core.Mode
	vertices  []core.GeoPoint
	previewID core.EntityID
	bindings  []*input.Binding
	// generation changes whenever bindings are torn down, so a handler that was
	// already scheduled by the dispatcher can tell it is stale.
	generation uint64
	closed     bool

	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup

	finalized   metric.Int64Counter
	labelErrors metric.Int64Counter
}

// New creates an idle session.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(cfg Config) (*Session, error) {
	switch {
	case cfg.Picker == nil:
		return nil, errors.New("picker is required")
	case cfg.Renderer == nil:
		return nil, errors.New("renderer is required")
	case cfg.Dispatcher == nil:
		return nil, errors.New("dispatcher is required")
	case cfg.Store == nil:
		return nil, errors.New("annotation store is required")
	case cfg.Measurer == nil:
		return nil, errors.New("path measurer is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		picker:       cfg.Picker,
		renderer:     cfg.Renderer,
		dispatcher:   cfg.Dispatcher,
		store:        cfg.Store,
		measurer:     cfg.Measurer,
		logger:       cfg.Logger,
		labelTimeout: cfg.LabelTimeout,
		mode:         core.ModeIdle,
		ctx:          ctx,
		cancel:       cancel,
	}

	m := meter()

	var err error
	s.finalized, err = m.Int64Counter(
		"session.shapes.finalized",
		metric.WithDescription("Total line and polygon shapes committed on finalize"),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating finalized counter: %w", err)
	}

	s.labelErrors, err = m.Int64Counter(
		"session.labels.failed",
		metric.WithDescription("Total measurement labels abandoned after a terrain failure"),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating label error counter: %w", err)
	}

	return s, nil
}

// Mode returns the selected mode.
func (s *Session) Mode() core.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Vertices returns a copy of the committed vertices of the shape in progress.
func (s *Session) Vertices() []core.GeoPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.GeoPoint(nil), s.vertices...)
}

// PreviewID returns the id of the preview entity, or "" when there is none.
func (s *Session) PreviewID() core.EntityID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previewID
}

// SetMode switches to m. The previous mode's bindings and preview are removed
// and the vertex list is reset before the new mode's handlers are bound.
func (s *Session) SetMode(m core.Mode) error {
	if m < core.ModeIdle || m > core.ModePolygon {
		return fmt.Errorf("unsupported mode %s", m)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	err := s.teardownLocked()
	s.mode = m
	s.bindLocked()

	s.logger.Debug("mode selected", "mode", m.String())
	return err
}

// ClearAll removes every annotation and the preview. The selected mode stays
// selected with fresh bindings and an empty vertex list.
func (s *Session) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	errs := []error{s.teardownLocked()}
	if err := s.store.ClearAll(); err != nil {
		errs = append(errs, err)
	}
	s.bindLocked()

	s.logger.Info("cleared all annotations", "mode", s.mode.String())
	return errors.Join(errs...)
}

// Wait blocks until every pending label computation has finished.
func (s *Session) Wait() {
	s.tasks.Wait()
}

// Close unbinds the session and cancels pending label computations.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	err := s.teardownLocked()
	s.mode = core.ModeIdle
	s.mu.Unlock()

	s.cancel()
	s.tasks.Wait()
	return err
}

// teardownLocked releases the bindings, removes the preview and resets vertices.
func (s *Session) teardownLocked() error {
	for _, b := range s.bindings {
		b.Unbind()
	}
	s.bindings = nil
	s.generation++
	s.vertices = nil
	return s.removePreviewLocked()
}

func (s *Session) removePreviewLocked() error {
	if s.previewID == "" {
		return nil
	}
	id := s.previewID
	s.previewID = ""
	if err := s.renderer.RemoveEntity(id); err != nil {
		return fmt.Errorf("removing preview %s: %w", id, err)
	}
	return nil
}

func (s *Session) bindLocked() {
	gen := s.generation
	owner := input.Owner("session:" + s.mode.String())

	bind := func(kind input.Kind, h func(core.GeoPoint) error) {
		b := s.dispatcher.Bind(kind, s.guard(gen, h), input.Logged(), owner)
		s.bindings = append(s.bindings, b)
	}

	switch s.mode {
	case core.ModePoint:
		bind(input.PrimaryClick, s.commitPointLocked)
	case core.ModeLine, core.ModePolygon:
		bind(input.PointerMove, s.updatePreviewLocked)
		bind(input.PrimaryClick, s.addVertexLocked)
		s.bindings = append(s.bindings, s.dispatcher.Bind(input.SecondaryClick,
			func(input.Event) error {
				s.mu.Lock()
				defer s.mu.Unlock()
				if s.generation != gen {
					return nil
				}
				return s.finalizeLocked()
			}, input.Logged(), owner))
	}
}

// guard resolves the event position and runs h under the session lock. Events
// from a torn-down binding and picks that miss the globe are ignored.
func (s *Session) guard(gen uint64, h func(core.GeoPoint) error) input.HandlerFunc {
	return func(e input.Event) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.generation != gen {
			return nil
		}
		pos, ok := s.picker.PickSurfacePoint(e.Position)
		if !ok {
			return nil
		}
		return h(pos)
	}
}

func (s *Session) commitPointLocked(pos core.GeoPoint) error {
	pos.Height = math.Max(pos.Height, 0)
	if _, err := s.store.AddPoint(pos, geo.FormatCoordinate(pos)); err != nil {
		return fmt.Errorf("committing point: %w", err)
	}
	return nil
}

func (s *Session) updatePreviewLocked(hover core.GeoPoint) error {
	effective := append(append(make([]core.GeoPoint, 0, len(s.vertices)+1), s.vertices...), hover)
	if len(effective) < core.MinPreviewVertices(s.mode) {
		return nil
	}

	if s.previewID != "" {
		if err := s.renderer.UpdatePositions(s.previewID, effective); err != nil {
			return fmt.Errorf("updating preview: %w", err)
		}
		return nil
	}

	var (
		id  core.EntityID
		err error
	)
	if s.mode == core.ModePolygon {
		id, err = s.renderer.RenderPolygon(scene.PolygonSpec{Positions: effective, Preview: true})
	} else {
		id, err = s.renderer.RenderLine(scene.LineSpec{Positions: effective, Preview: true})
	}
	if err != nil {
		return fmt.Errorf("creating preview: %w", err)
	}
	s.previewID = id
	return nil
}

func (s *Session) addVertexLocked(pos core.GeoPoint) error {
	s.vertices = append(s.vertices, pos)
	if _, err := s.store.AddPoint(pos, ""); err != nil {
		return fmt.Errorf("adding vertex marker: %w", err)
	}
	return nil
}

// finalizeLocked commits the shape in progress and starts its measurement. The
// vertex list is reset whether or not there were enough vertices.
func (s *Session) finalizeLocked() error {
	vertices := s.vertices
	s.vertices = nil
	previewErr := s.removePreviewLocked()

	if len(vertices) < core.MinPreviewVertices(s.mode) {
		s.logger.Debug("finalize with too few vertices", "mode", s.mode.String(), "vertices", len(vertices))
		return previewErr
	}

	var err error
	switch s.mode {
	case core.ModeLine:
		err = s.finalizeLineLocked(vertices)
	case core.ModePolygon:
		err = s.finalizePolygonLocked(vertices)
	}
	return errors.Join(previewErr, err)
}

func (s *Session) finalizeLineLocked(vertices []core.GeoPoint) error {
	id, err := s.store.AddLine(vertices)
	if err != nil {
		return fmt.Errorf("committing line: %w", err)
	}
	s.finalized.Add(s.ctx, 1, metric.WithAttributes(attribute.String("kind", core.KindLine.String())))
	s.logger.Info("line committed", "id", id, "vertices", len(vertices))

	s.tasks.Add(1)
	go s.labelDistance(id, vertices)
	return nil
}

// labelDistance measures the committed line and attaches the result to it. It
// only ever writes to the line captured at finalize time.
func (s *Session) labelDistance(id core.EntityID, vertices []core.GeoPoint) {
	defer s.tasks.Done()

	ctx := s.ctx
	if s.labelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.labelTimeout)
		defer cancel()
	}

	d, err := s.measurer.PathDistance(ctx, vertices)
	if err != nil {
		s.labelErrors.Add(context.Background(), 1)
		s.logger.Warn("terrain distance failed, line left unlabeled", "id", id, "error", err)
		return
	}

	_, ok, err := s.store.AttachLabel(id, geo.FormatDistance(d), vertices[len(vertices)-1])
	switch {
	case err != nil:
		s.labelErrors.Add(context.Background(), 1)
		s.logger.Warn("failed to attach distance label", "id", id, "error", err)
	case !ok:
		s.logger.Debug("line removed before its distance label was ready", "id", id)
	default:
		s.logger.Debug("distance label attached", "id", id, "distance", d)
	}
}

func (s *Session) finalizePolygonLocked(vertices []core.GeoPoint) error {
	id, err := s.store.AddPolygon(vertices)
	if err != nil {
		return fmt.Errorf("committing polygon: %w", err)
	}
	s.finalized.Add(s.ctx, 1, metric.WithAttributes(attribute.String("kind", core.KindPolygon.String())))

	area := geo.PolygonArea(vertices)
	if _, _, err := s.store.AttachLabel(id, area.String(), geo.Centroid(vertices)); err != nil {
		return fmt.Errorf("labelling polygon: %w", err)
	}

	s.logger.Info("polygon committed", "id", id, "vertices", len(vertices), "area", area.String())
	return nil
}
