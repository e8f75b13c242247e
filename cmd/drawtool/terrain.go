package main

import (
	"fmt"
	"io"

	"github.com/spf13/viper"
	"github.com/terrasketch/drawtool/internal/config"
	"github.com/terrasketch/drawtool/internal/logging"
	"github.com/terrasketch/drawtool/internal/scene"
	"github.com/terrasketch/drawtool/internal/terrain"
	"github.com/terrasketch/drawtool/internal/terrain/demstore"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openTerrain builds the terrain service selected by terrain.source.
func openTerrain(cfg config.TerrainConfig) (scene.TerrainService, io.Closer, error) {
	switch cfg.Source {
	case "", "flat":
		return terrain.Flat{Height: cfg.FlatHeight}, nopCloser{}, nil
	case "dem":
		store, err := openDEM(cfg.DEM)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown terrain source %q", cfg.Source)
	}
}

func openDEM(cfg config.DEMConfig) (*demstore.Store, error) {
	log := logging.NewZerolog(rootCmd.ErrOrStderr(), viper.GetString("logLevel"))
	dsn := cfg.Path
	if cfg.Driver == demstore.DriverPostgres {
		dsn = cfg.DSN
	}
	return demstore.OpenDriver(cfg.Driver, dsn, cfg.Resolution, log)
}

func newSampler(service scene.TerrainService, cfg config.TerrainConfig) (*terrain.Sampler, error) {
	return terrain.NewSampler(service,
		terrain.WithSampleSpacing(cfg.SampleSpacing),
		terrain.WithLevelOfDetail(cfg.LevelOfDetail),
		terrain.WithLogger(Logger),
	)
}
