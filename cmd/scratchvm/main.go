// Package main is the entrypoint to the scratchvm CLI: a thin driver over
// the runtime/engine packages for loading a serialized Script bundle and
// either running it to completion or stepping through it interactively.
// It does not implement a project-file compiler, renderer, or any other
// host primitive; bundles that call host primitives via EXEC are bound to
// no-op stand-ins so purely computational scripts still run.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "scratchvm",
	Short: "Load and drive a compiled scratchvm Script bundle",
	Long:  "scratchvm runs or single-steps a Script bundle produced by the runtime package's Dump, without a project compiler or renderer attached.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid log level %q, using \"info\"\n", logLevel)
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "trace, debug, info, warn, or error")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
