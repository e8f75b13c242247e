package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/terrasketch/drawtool/internal/config"
)

var demCmd = &cobra.Command{
	Use:   "dem",
	Short: "Manage the elevation database",
}

var demImportCmd = &cobra.Command{
	Use:   "import <cells.csv>",
	Short: "Import elevation posts from CSV",
	Long: `Import loads rows of longitude, latitude and height into the DEM database at
terrain.dem.path, snapping each to the grid at terrain.dem.resolution.`,
	Args: cobra.ExactArgs(1),
	RunE: runDEMImport,
}

func init() {
	demCmd.AddCommand(demImportCmd)
	rootCmd.AddCommand(demCmd)
}

func runDEMImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	store, err := openDEM(config.GetTerrainConfig().DEM)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	res, err := store.ImportCSV(ctx, f)
	if err != nil {
		return err
	}
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d cells (%d rows skipped), %d cells in database\n",
		res.Imported, res.Skipped, total)
	return nil
}
