package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terrasketch/drawtool/internal/config"
	"github.com/terrasketch/drawtool/internal/geo"
	"github.com/terrasketch/drawtool/pkg/core"
)

var (
	measureFrom string
	measureTo   string
	measurePath string
)

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Measure between points",
	Long: `Measure prints the initial bearing, great-circle distance, surface distance and
terrain-following distance between two points given as lon,lat[,height], or the
lengths of a path given as a JSON array of [lon,lat(,height)] vertices.`,
	Args: cobra.NoArgs,
	RunE: runMeasure,
}

func init() {
	rootCmd.AddCommand(measureCmd)

	measureCmd.Flags().StringVar(&measureFrom, "from", "", "start point as lon,lat[,height]")
	measureCmd.Flags().StringVar(&measureTo, "to", "", "end point as lon,lat[,height]")
	measureCmd.Flags().StringVar(&measurePath, "path", "", "path as a JSON array of [lon,lat(,height)]")

	measureCmd.MarkFlagsRequiredTogether("from", "to")
	measureCmd.MarkFlagsMutuallyExclusive("from", "path")
}

func runMeasure(cmd *cobra.Command, _ []string) error {
	var vertices []core.GeoPoint
	switch {
	case measurePath != "":
		v, err := geo.ParseVertices(measurePath)
		if err != nil {
			return fmt.Errorf("--path: %w", err)
		}
		if len(v) < 2 {
			return errors.New("--path needs at least 2 vertices")
		}
		vertices = v
	case measureFrom != "":
		p1, err := geo.ParseGeoPoint(measureFrom)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		p2, err := geo.ParseGeoPoint(measureTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		vertices = []core.GeoPoint{p1, p2}
	default:
		return errors.New("either --from and --to or --path is required")
	}

	tcfg := config.GetTerrainConfig()
	service, closer, err := openTerrain(tcfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	sampler, err := newSampler(service, tcfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if tcfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tcfg.Timeout)
		defer cancel()
	}
	terrainDistance, err := sampler.PathDistance(ctx, vertices)
	if err != nil {
		return fmt.Errorf("terrain distance: %w", err)
	}

	var greatCircle float64
	for i := 1; i < len(vertices); i++ {
		greatCircle += geo.GreatCircleDistance(vertices[i-1], vertices[i])
	}

	first, last := vertices[0], vertices[len(vertices)-1]
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Point-to-Point Measurement")
	fmt.Fprintln(out, "==========================")
	fmt.Fprintf(out, "\nFrom: %s\n", geo.FormatCoordinate(first))
	fmt.Fprintf(out, "To:   %s\n", geo.FormatCoordinate(last))
	if len(vertices) > 2 {
		fmt.Fprintf(out, "Vertices: %d\n", len(vertices))
	}
	fmt.Fprintf(out, "\nBearing:          %.2f°\n", geo.Bearing(first, vertices[1]))
	fmt.Fprintf(out, "Great circle:     %s\n", geo.FormatDistance(greatCircle))
	fmt.Fprintf(out, "Surface:          %s\n", geo.FormatDistance(geo.PathLength(vertices)))
	fmt.Fprintf(out, "Terrain (%s): %s\n", tcfg.Source, geo.FormatDistance(terrainDistance))
	return nil
}
