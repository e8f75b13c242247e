package geo

import (
	"encoding/json"
	"fmt"

	"github.com/terrasketch/drawtool/pkg/core"
)

// ParseVertices parses a JSON array of coordinates into an ordered vertex list.
// Input format: "[[lon1,lat1],[lon2,lat2,h2],...]"
func ParseVertices(input string) ([]core.GeoPoint, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse vertices JSON: %w", err)
	}

	vertices := make([]core.GeoPoint, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 || len(coord) > 3 {
			return nil, fmt.Errorf("coordinate %d has %d values, want 2 or 3", i, len(coord))
		}
		v := core.GeoPoint{Longitude: coord[0], Latitude: coord[1]}
		if len(coord) == 3 {
			v.Height = coord[2]
		}
		if !IsValid(v) {
			return nil, fmt.Errorf("coordinate %d: %w", i, ErrInvalidCoordinates)
		}
		vertices[i] = v
	}

	return vertices, nil
}
