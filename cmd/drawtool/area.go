package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/terrasketch/drawtool/internal/geo"
	"github.com/terrasketch/drawtool/pkg/core"
)

var areaCmd = &cobra.Command{
	Use:   "area <lon,lat> <lon,lat> <lon,lat> [lon,lat...] | area '[[lon,lat],...]'",
	Short: "Compute the area of a polygon",
	Long: `Area prints the approximate area, perimeter and label position of the polygon
through the given vertices, passed either one per argument or as a single JSON array.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runArea,
}

func init() {
	rootCmd.AddCommand(areaCmd)
}

// parseVertexArgs accepts either one "lon,lat[,h]" per argument or a single JSON array.
func parseVertexArgs(args []string) ([]core.GeoPoint, error) {
	if len(args) == 1 && strings.HasPrefix(strings.TrimSpace(args[0]), "[") {
		return geo.ParseVertices(args[0])
	}
	vertices := make([]core.GeoPoint, 0, len(args))
	for i, arg := range args {
		p, err := geo.ParseGeoPoint(arg)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i, err)
		}
		vertices = append(vertices, p)
	}
	return vertices, nil
}

func runArea(cmd *cobra.Command, args []string) error {
	vertices, err := parseVertexArgs(args)
	if err != nil {
		return err
	}
	if len(vertices) < 3 {
		return fmt.Errorf("a polygon needs at least 3 vertices, got %d", len(vertices))
	}

	poly, err := geo.PolygonGeometry(vertices)
	if err != nil {
		return fmt.Errorf("building polygon: %w", err)
	}
	area := geo.PolygonArea(vertices)
	closed := append(vertices[:len(vertices):len(vertices)], vertices[0])

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Vertices:  %d\n", len(vertices))
	fmt.Fprintf(out, "Area:      %s\n", area)
	fmt.Fprintf(out, "Perimeter: %s\n", geo.FormatDistance(geo.PathLength(closed)))
	fmt.Fprintf(out, "Centroid:  %s\n", geo.FormatCoordinate(geo.Centroid(vertices)))
	fmt.Fprintf(out, "WKT:       %s\n", poly.AsText())
	return nil
}
