// Package terrain measures terrain-following path lengths from sampled elevations.
package terrain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/terrasketch/drawtool/internal/geo"
	"github.com/terrasketch/drawtool/internal/scene"
	"github.com/terrasketch/drawtool/pkg/core"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSampleSpacing = 1000.0 // metres between sub-points
	DefaultLevelOfDetail = 12
)

// ErrIncompleteSamples is returned when the terrain service answers with fewer
// samples than were requested.
var ErrIncompleteSamples = errors.New("terrain returned fewer samples than requested")

// Sampler computes terrain-corrected distances by querying a TerrainService.
type Sampler struct {
	service       scene.TerrainService
	sampleSpacing float64
	levelOfDetail int
	logger        *slog.Logger

	queries  metric.Int64Counter
	failures metric.Int64Counter
	points   metric.Int64Histogram
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithSampleSpacing sets the distance between interpolated sub-points.
func WithSampleSpacing(metres float64) Option {
	return func(s *Sampler) {
		if metres > 0 {
			s.sampleSpacing = metres
		}
	}
}

// WithLevelOfDetail sets the terrain level of detail requested from the service.
func WithLevelOfDetail(lod int) Option {
	return func(s *Sampler) {
		s.levelOfDetail = lod
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSampler creates a sampler backed by service.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewSampler(service scene.TerrainService, opts ...Option) (*Sampler, error) {
	if service == nil {
		return nil, errors.New("terrain service is required")
	}

	s := &Sampler{
		service:       service,
		sampleSpacing: DefaultSampleSpacing,
		levelOfDetail: DefaultLevelOfDetail,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	m := meter()

	var err error
	s.queries, err = m.Int64Counter(
		"terrain.queries",
		metric.WithDescription("Total batched elevation queries"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queries counter: %w", err)
	}

	s.failures, err = m.Int64Counter(
		"terrain.queries.failed",
		metric.WithDescription("Total elevation queries that failed or came back short"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failures counter: %w", err)
	}

	s.points, err = m.Int64Histogram(
		"terrain.query.points",
		metric.WithDescription("Sub-points requested per elevation query"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating points histogram: %w", err)
	}

	return s, nil
}

// Distance returns the terrain-following length between p1 and p2. Sub-points
// are interpolated along the great circle, their heights replaced by one batched
// elevation query, and the surface distances between consecutive sub-points summed.
// Sub-points the service has no data for are taken at height 0.
func (s *Sampler) Distance(ctx context.Context, p1, p2 core.GeoPoint) (float64, error) {
	points, err := geo.Interpolate(p1, p2, s.sampleSpacing)
	if err != nil {
		return 0, err
	}

	s.queries.Add(ctx, 1)
	s.points.Record(ctx, int64(len(points)))

	samples, err := s.service.SampleElevations(ctx, points, s.levelOfDetail)
	if err != nil {
		s.failures.Add(ctx, 1)
		return 0, fmt.Errorf("sampling elevations: %w", err)
	}
	if len(samples) < len(points) {
		s.failures.Add(ctx, 1)
		return 0, fmt.Errorf("%w: got %d of %d", ErrIncompleteSamples, len(samples), len(points))
	}

	corrected := make([]core.GeoPoint, len(points))
	for i, p := range points {
		h := 0.0
		if samples[i].Valid {
			h = samples[i].Position.Height
		}
		corrected[i] = p.WithHeight(h)
	}

	var total float64
	for i := 1; i < len(corrected); i++ {
		total += geo.SurfaceDistance(corrected[i-1], corrected[i])
	}

	s.logger.Debug("sampled terrain distance",
		"points", len(points),
		"distance", total,
	)
	return total, nil
}

// PathDistance sums the terrain distance of every segment of the path. All
// segment queries are started before any result is awaited; the first failure
// fails the whole path.
func (s *Sampler) PathDistance(ctx context.Context, vertices []core.GeoPoint) (float64, error) {
	if len(vertices) < 2 {
		return 0, nil
	}

	segments := make([]float64, len(vertices)-1)
	g, gctx := errgroup.WithContext(ctx)
	for i := range segments {
		g.Go(func() error {
			d, err := s.Distance(gctx, vertices[i], vertices[i+1])
			if err != nil {
				return fmt.Errorf("segment %d: %w", i, err)
			}
			segments[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total float64
	for _, d := range segments {
		total += d
	}
	return total, nil
}
