package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/terrasketch/drawtool/internal/annotation"
	"github.com/terrasketch/drawtool/internal/config"
	"github.com/terrasketch/drawtool/internal/input"
	"github.com/terrasketch/drawtool/internal/replay"
	"github.com/terrasketch/drawtool/internal/scene/memory"
	"github.com/terrasketch/drawtool/internal/session"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.json>",
	Short: "Replay a scripted drawing session",
	Long: `Replay feeds mode selections and pointer events from a JSON script through a
drawing session on a headless globe, then lists the resulting annotations.
Pointer positions are canvas pixels mapped through the configured viewport.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	script, err := replay.Parse(f)
	if err != nil {
		return err
	}

	tcfg := config.GetTerrainConfig()
	service, closer, err := openTerrain(tcfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	vp := config.GetViewportConfig()
	host := memory.New(memory.Config{
		Viewport: memory.Viewport{
			West:            vp.West,
			North:           vp.North,
			DegreesPerPixel: vp.DegreesPerPixel,
			Width:           vp.Width,
			Height:          vp.Height,
		},
		Terrain:       service,
		LevelOfDetail: tcfg.LevelOfDetail,
	})

	dispatcher, err := input.New(Logger)
	if err != nil {
		return err
	}
	store, err := annotation.NewStore(host)
	if err != nil {
		return err
	}
	sampler, err := newSampler(host, tcfg)
	if err != nil {
		return err
	}

	sess, err := session.New(session.Config{
		Picker:       host,
		Renderer:     host,
		Dispatcher:   dispatcher,
		Store:        store,
		Measurer:     sampler,
		Logger:       Logger,
		LabelTimeout: tcfg.Timeout,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	runner := &replay.Runner{Target: sess, Dispatcher: dispatcher}
	stepProvider = runner.Step
	defer func() { stepProvider = nil }()

	Logger.Info("replaying script", "path", args[0], "steps", len(script.Steps))
	if err := runner.Run(script); err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}
	stepProvider = nil

	return replay.WriteReport(cmd.OutOrStdout(), store, host)
}
