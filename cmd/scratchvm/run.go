package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gookit/color"
	"github.com/lestrrat-go/strftime"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tanema/scratchvm/engine"
	"github.com/tanema/scratchvm/lerrors"
	"github.com/tanema/scratchvm/runtime"
)

var (
	runConfigPath string
	runFPS        float64
	runTurbo      bool
)

var runCmd = &cobra.Command{
	Use:   "run BUNDLE",
	Short: "Load a Script bundle and run it from its GreenFlag hat to completion",
	Args:  cobra.ExactArgs(1),
	RunE:  runCommand,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "engine config TOML (defaults if omitted)")
	runCmd.Flags().Float64Var(&runFPS, "fps", 0, "override the configured frame rate")
	runCmd.Flags().BoolVar(&runTurbo, "turbo", false, "ignore redraw requests and run threads until the per-frame work budget is spent")
}

var timestampPattern = mustNewStrftime("%Y-%m-%d %H:%M:%S")

func mustNewStrftime(pattern string) *strftime.Strftime {
	f, err := strftime.New(pattern)
	if err != nil {
		panic(err)
	}
	return f
}

func runCommand(cmd *cobra.Command, args []string) error {
	bundlePath := args[0]
	f, err := os.Open(bundlePath)
	if err != nil {
		return fmt.Errorf("opening bundle %s: %w", bundlePath, err)
	}
	defer f.Close()

	script, err := runtime.LoadScript(f)
	if err != nil {
		return fmt.Errorf("loading bundle %s: %w", bundlePath, err)
	}
	bindNoopFunctions(script)

	cfg := engine.DefaultConfig()
	if runConfigPath != "" {
		cfg, err = engine.LoadConfig(runConfigPath)
		if err != nil {
			return err
		}
	}
	if runFPS > 0 {
		cfg.FPS = runFPS
	}
	if runTurbo {
		cfg.TurboMode = true
	}

	target := newCLITarget(script.Name, script)
	e := engine.New(cfg)
	e.AddTarget(target, true)
	e.RegisterScript(script, target, engine.GreenFlag, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		cancel()
	}()

	started := timestampPattern.FormatString(time.Now())
	fmt.Fprintln(os.Stderr, color.Cyan.Sprintf("[%s] running %s", started, script.Name))

	if err := e.Run(ctx); err != nil {
		var lerr *lerrors.Error
		if ok := asLerror(err, &lerr); ok {
			log.Error().Err(lerr).Msg("script faulted")
		}
		return err
	}
	fmt.Fprintln(os.Stderr, color.Green.Sprint("done"))
	return nil
}

func asLerror(err error, target **lerrors.Error) bool {
	le, ok := err.(*lerrors.Error)
	if ok {
		*target = le
	}
	return ok
}
