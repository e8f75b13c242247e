package terrain

import (
	"context"

	"github.com/terrasketch/drawtool/pkg/core"
)

// Flat is a TerrainService reporting the same height everywhere.
type Flat struct {
	Height float64
}

// SampleElevations returns every point at f.Height.
func (f Flat) SampleElevations(ctx context.Context, points []core.GeoPoint, _ int) ([]core.TerrainSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]core.TerrainSample, len(points))
	for i, p := range points {
		out[i] = core.TerrainSample{Position: p.WithHeight(f.Height), Valid: true}
	}
	return out, nil
}
