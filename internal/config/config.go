package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the name of the configuration file looked up in the config directory.
const FileName = "drawtool.cfg.json"

// TerrainConfig holds terrain sampling settings
type TerrainConfig struct {
	Source        string        `json:"source" mapstructure:"source"` // flat or dem
	SampleSpacing float64       `json:"sampleSpacing" mapstructure:"sampleSpacing"`
	LevelOfDetail int           `json:"levelOfDetail" mapstructure:"levelOfDetail"`
	FlatHeight    float64       `json:"flatHeight" mapstructure:"flatHeight"`
	Timeout       time.Duration `json:"timeout" mapstructure:"timeout"`
	DEM           DEMConfig     `json:"dem" mapstructure:"dem"`
}

// DEMConfig holds the elevation database settings
type DEMConfig struct {
	Driver     string  `json:"driver" mapstructure:"driver"` // sqlite or postgres
	Path       string  `json:"path" mapstructure:"path"`     // sqlite file
	DSN        string  `json:"dsn" mapstructure:"dsn"`       // postgres connection string
	Resolution float64 `json:"resolution" mapstructure:"resolution"`
}

// ViewportConfig maps the headless canvas onto the globe
type ViewportConfig struct {
	West            float64 `json:"west" mapstructure:"west"`
	North           float64 `json:"north" mapstructure:"north"`
	DegreesPerPixel float64 `json:"degreesPerPixel" mapstructure:"degreesPerPixel"`
	Width           int     `json:"width" mapstructure:"width"`
	Height          int     `json:"height" mapstructure:"height"`
}

// MetricsConfig holds OpenTelemetry metrics settings
type MetricsConfig struct {
	Enabled     bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName string        `json:"serviceName" mapstructure:"serviceName"`
	Interval    time.Duration `json:"interval" mapstructure:"interval"`
}

// SetDefaults registers the default value of every setting.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./drawtoollogs")

	viper.SetDefault("terrain.source", "flat")
	viper.SetDefault("terrain.sampleSpacing", 1000.0)
	viper.SetDefault("terrain.levelOfDetail", 12)
	viper.SetDefault("terrain.flatHeight", 0.0)
	viper.SetDefault("terrain.timeout", "30s")
	viper.SetDefault("terrain.dem.driver", "sqlite")
	viper.SetDefault("terrain.dem.path", "./dem.db")
	viper.SetDefault("terrain.dem.dsn", "")
	viper.SetDefault("terrain.dem.resolution", 0.0008333)

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.serviceName", "drawtool")
	viper.SetDefault("metrics.interval", "1m")

	viper.SetDefault("viewport.west", -180.0)
	viper.SetDefault("viewport.north", 90.0)
	viper.SetDefault("viewport.degreesPerPixel", 0.1)
	viper.SetDefault("viewport.width", 3600)
	viper.SetDefault("viewport.height", 1800)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetTerrainConfig returns the terrain configuration.
func GetTerrainConfig() TerrainConfig {
	return TerrainConfig{
		Source:        viper.GetString("terrain.source"),
		SampleSpacing: viper.GetFloat64("terrain.sampleSpacing"),
		LevelOfDetail: viper.GetInt("terrain.levelOfDetail"),
		FlatHeight:    viper.GetFloat64("terrain.flatHeight"),
		Timeout:       viper.GetDuration("terrain.timeout"),
		DEM: DEMConfig{
			Driver:     viper.GetString("terrain.dem.driver"),
			Path:       viper.GetString("terrain.dem.path"),
			DSN:        viper.GetString("terrain.dem.dsn"),
			Resolution: viper.GetFloat64("terrain.dem.resolution"),
		},
	}
}

// GetViewportConfig returns the viewport configuration.
func GetViewportConfig() ViewportConfig {
	return ViewportConfig{
		West:            viper.GetFloat64("viewport.west"),
		North:           viper.GetFloat64("viewport.north"),
		DegreesPerPixel: viper.GetFloat64("viewport.degreesPerPixel"),
		Width:           viper.GetInt("viewport.width"),
		Height:          viper.GetInt("viewport.height"),
	}
}

// GetMetricsConfig returns the metrics configuration.
func GetMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:     viper.GetBool("metrics.enabled"),
		ServiceName: viper.GetString("metrics.serviceName"),
		Interval:    viper.GetDuration("metrics.interval"),
	}
}
