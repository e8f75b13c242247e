package terrain

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terrasketch/drawtool/internal/geo"
	"github.com/terrasketch/drawtool/pkg/core"
)

// serviceFunc adapts a function to scene.TerrainService.
type serviceFunc func(ctx context.Context, points []core.GeoPoint, lod int) ([]core.TerrainSample, error)

func (f serviceFunc) SampleElevations(ctx context.Context, points []core.GeoPoint, lod int) ([]core.TerrainSample, error) {
	return f(ctx, points, lod)
}

func pt(lon, lat float64) core.GeoPoint {
	return core.GeoPoint{Longitude: lon, Latitude: lat}
}

func newTestSampler(t *testing.T, svc serviceFunc, opts ...Option) *Sampler {
	t.Helper()
	s, err := NewSampler(svc, opts...)
	require.NoError(t, err)
	return s
}

func TestNewSampler_RequiresService(t *testing.T) {
	_, err := NewSampler(nil)
	assert.Error(t, err)
}

func TestDistance_Flat(t *testing.T) {
	s, err := NewSampler(Flat{Height: 300})
	require.NoError(t, err)

	p1, p2 := pt(0, 0), pt(0, 0.1)
	d, err := s.Distance(context.Background(), p1, p2)
	require.NoError(t, err)
	assert.InDelta(t, geo.GreatCircleDistance(p1, p2), d, 0.01)
}

func TestDistance_Ramp(t *testing.T) {
	// height rises 1000 m per 0.01 degree of latitude
	ramp := func(_ context.Context, points []core.GeoPoint, _ int) ([]core.TerrainSample, error) {
		out := make([]core.TerrainSample, len(points))
		for i, p := range points {
			out[i] = core.TerrainSample{Position: p.WithHeight(p.Latitude * 1e5), Valid: true}
		}
		return out, nil
	}
	s := newTestSampler(t, ramp, WithSampleSpacing(100))

	p1, p2 := pt(0, 0), pt(0, 0.01)
	d, err := s.Distance(context.Background(), p1, p2)
	require.NoError(t, err)

	gc := geo.GreatCircleDistance(p1, p2)
	assert.InDelta(t, math.Hypot(gc, 1000), d, 0.5)
}

func TestDistance_UsesSpacingAndLevelOfDetail(t *testing.T) {
	var gotPoints, gotLOD int
	svc := func(_ context.Context, points []core.GeoPoint, lod int) ([]core.TerrainSample, error) {
		gotPoints, gotLOD = len(points), lod
		return Flat{}.SampleElevations(context.Background(), points, lod)
	}
	s := newTestSampler(t, svc, WithSampleSpacing(250), WithLevelOfDetail(9))

	// about 1112 m: sub-points at 0, 250, 500, 750, 1000 plus the end point
	_, err := s.Distance(context.Background(), pt(0, 0), pt(0, 0.01))
	require.NoError(t, err)
	assert.Equal(t, 6, gotPoints)
	assert.Equal(t, 9, gotLOD)
}

func TestDistance_MissingElevationIsZero(t *testing.T) {
	noCoverage := func(_ context.Context, points []core.GeoPoint, _ int) ([]core.TerrainSample, error) {
		out := make([]core.TerrainSample, len(points))
		for i, p := range points {
			out[i] = core.TerrainSample{Position: p.WithHeight(9999)}
		}
		return out, nil
	}
	s := newTestSampler(t, noCoverage)

	p1 := core.GeoPoint{Longitude: 0, Latitude: 0, Height: 500}
	p2 := core.GeoPoint{Longitude: 0, Latitude: 0.01, Height: 1500}
	d, err := s.Distance(context.Background(), p1, p2)
	require.NoError(t, err)
	assert.InDelta(t, geo.GreatCircleDistance(p1, p2), d, 0.01)
}

func TestDistance_IncompleteSamples(t *testing.T) {
	short := func(_ context.Context, points []core.GeoPoint, _ int) ([]core.TerrainSample, error) {
		return make([]core.TerrainSample, len(points)-1), nil
	}
	s := newTestSampler(t, short)

	_, err := s.Distance(context.Background(), pt(0, 0), pt(0, 0.05))
	assert.ErrorIs(t, err, ErrIncompleteSamples)
}

func TestDistance_ServiceError(t *testing.T) {
	boom := errors.New("tile server down")
	failing := func(context.Context, []core.GeoPoint, int) ([]core.TerrainSample, error) {
		return nil, boom
	}
	s := newTestSampler(t, failing)

	_, err := s.Distance(context.Background(), pt(0, 0), pt(0, 0.05))
	assert.ErrorIs(t, err, boom)
}

func TestPathDistance_SumsSegments(t *testing.T) {
	s, err := NewSampler(Flat{})
	require.NoError(t, err)

	path := []core.GeoPoint{pt(0, 0), pt(0, 0.01), pt(0.01, 0.01)}
	d, err := s.PathDistance(context.Background(), path)
	require.NoError(t, err)

	want := geo.GreatCircleDistance(path[0], path[1]) + geo.GreatCircleDistance(path[1], path[2])
	assert.InDelta(t, want, d, 0.01)
}

func TestPathDistance_TooFewVertices(t *testing.T) {
	s, err := NewSampler(Flat{})
	require.NoError(t, err)

	d, err := s.PathDistance(context.Background(), []core.GeoPoint{pt(0, 0)})
	require.NoError(t, err)
	assert.Zero(t, d)
}

func TestPathDistance_QueriesRunConcurrently(t *testing.T) {
	const segments = 4

	var started sync.WaitGroup
	started.Add(segments)
	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()

	// each query blocks until every segment has issued its query
	barrier := func(ctx context.Context, points []core.GeoPoint, lod int) ([]core.TerrainSample, error) {
		started.Done()
		select {
		case <-allStarted:
		case <-time.After(2 * time.Second):
			return nil, errors.New("queries were not issued concurrently")
		}
		return Flat{}.SampleElevations(ctx, points, lod)
	}
	s := newTestSampler(t, barrier)

	path := []core.GeoPoint{pt(0, 0), pt(0, 0.01), pt(0, 0.02), pt(0, 0.03), pt(0, 0.04)}
	d, err := s.PathDistance(context.Background(), path)
	require.NoError(t, err)
	assert.InDelta(t, geo.GreatCircleDistance(path[0], path[4]), d, 0.1)
}

func TestPathDistance_FirstErrorFailsPath(t *testing.T) {
	var calls sync.Mutex
	n := 0
	flaky := func(ctx context.Context, points []core.GeoPoint, lod int) ([]core.TerrainSample, error) {
		calls.Lock()
		n++
		fail := n == 2
		calls.Unlock()
		if fail {
			return nil, errors.New("timeout")
		}
		return Flat{}.SampleElevations(ctx, points, lod)
	}
	s := newTestSampler(t, flaky)

	_, err := s.PathDistance(context.Background(), []core.GeoPoint{pt(0, 0), pt(0, 0.01), pt(0, 0.02)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestFlat_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Flat{}.SampleElevations(ctx, []core.GeoPoint{pt(0, 0)}, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
