package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/terrasketch/drawtool/internal/config"
	"github.com/terrasketch/drawtool/internal/logging"
	"github.com/terrasketch/drawtool/internal/otel"
)

const appName = "drawtool"

var (
	configDir string
	logLevel  string
	logToFile bool

	logManager = logging.NewSlogManager()
	telemetry  *otel.Provider
	metricsOut *os.File
	// Logger is the application logger, ready once the root command's pre-run has executed.
	Logger = slog.Default()
	// stepProvider, when set, tags log records with the replay step being played.
	stepProvider func() int
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Measure and annotate on the globe",
	Long: `drawtool is the headless front end of the globe measurement engine.
It replays scripted drawing sessions, measures terrain-following distances
and polygon areas, and manages the DEM used for terrain sampling.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing "+config.FileName)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log-file", false, "also write logs to the configured logs directory")
}

func setup(cmd *cobra.Command, _ []string) error {
	err := config.Load(configDir)
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return err
	}

	if logLevel != "" {
		viper.Set("logLevel", logLevel)
	}

	if logToFile {
		if _, err := logManager.OpenFile(viper.GetString("logsDir"), appName, time.Now()); err != nil {
			return err
		}
	}

	logManager.Setup(cmd.ErrOrStderr(), viper.GetString("logLevel"), stepAttrs)
	Logger = logManager.Logger()

	if err != nil {
		Logger.Debug("no config file found, using defaults", "dir", configDir)
	}

	return setupMetrics(config.GetMetricsConfig())
}

func setupMetrics(mc config.MetricsConfig) error {
	cfg := otel.Config{Enabled: mc.Enabled, ServiceName: mc.ServiceName, Interval: mc.Interval}
	if mc.Enabled {
		logsDir := viper.GetString("logsDir")
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			return fmt.Errorf("creating logs dir: %w", err)
		}
		f, err := os.Create(logging.LogFilePath(logsDir, appName+"-metrics", time.Now()))
		if err != nil {
			return fmt.Errorf("creating metrics file: %w", err)
		}
		metricsOut = f
		cfg.Writer = f
	}

	var err error
	telemetry, err = otel.New(cfg)
	return err
}

func teardown(*cobra.Command, []string) {
	if telemetry != nil {
		if err := telemetry.Shutdown(context.Background()); err != nil {
			Logger.Error("failed to export metrics", "error", err)
		}
	}
	if metricsOut != nil {
		_ = metricsOut.Close()
		metricsOut = nil
	}
	_ = logManager.Close()
}

func stepAttrs(_ context.Context) []slog.Attr {
	if stepProvider == nil {
		return nil
	}
	if step := stepProvider(); step >= 0 {
		return []slog.Attr{slog.Int("step", step)}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
