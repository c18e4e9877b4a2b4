package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/tanema/scratchvm/engine"
	"github.com/tanema/scratchvm/runtime"
)

var debugConfigPath string

var debugCmd = &cobra.Command{
	Use:   "debug BUNDLE",
	Short: "Load a Script bundle and single-step it from a console",
	Args:  cobra.ExactArgs(1),
	RunE:  debugCommand,
}

func init() {
	debugCmd.Flags().StringVar(&debugConfigPath, "config", "", "engine config TOML (defaults if omitted)")
}

var stepTimestamp = mustNewStrftime("%H:%M:%S")

// debugSession holds the state a debug console command operates on: one
// bundle, bound to one cliTarget, driven by one Engine a frame at a time
// instead of through Engine.Run's paced event loop.
type debugSession struct {
	script *runtime.Script
	target *cliTarget
	e      *engine.Engine
	frame  int
}

func debugCommand(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening bundle %s: %w", args[0], err)
	}
	defer f.Close()

	script, err := runtime.LoadScript(f)
	if err != nil {
		return fmt.Errorf("loading bundle %s: %w", args[0], err)
	}
	bindNoopFunctions(script)

	cfg := engine.DefaultConfig()
	if debugConfigPath != "" {
		cfg, err = engine.LoadConfig(debugConfigPath)
		if err != nil {
			return err
		}
	}

	target := newCLITarget(script.Name, script)
	e := engine.New(cfg)
	e.AddTarget(target, true)
	e.RegisterScript(script, target, engine.GreenFlag, "")

	sess := &debugSession{script: script, target: target, e: e}
	return sess.repl()
}

func (s *debugSession) repl() error {
	rl, err := readline.New("(scratchvm) ")
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintln(os.Stderr, "type 'help' for commands")
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				break
			}
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "help":
			printDebugHelp()
		case "step", "s":
			s.step()
		case "run", "r":
			s.runToEnd()
		case "vars", "v":
			s.printVars()
		case "var":
			if len(fields) < 2 {
				fmt.Fprintln(os.Stderr, "usage: var INDEX")
				continue
			}
			s.printVar(fields[1])
		case "status":
			s.printStatus()
		case "quit", "q", "exit":
			return nil
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q, try 'help'\n", fields[0])
		}
	}
	return nil
}

func printDebugHelp() {
	fmt.Fprintln(os.Stderr, `commands:
  step, s        advance the scheduler one frame
  run, r         advance until every thread finishes
  vars, v        print every variable on the target
  var INDEX      print one variable by index
  status         print whether the project is still running
  quit, q        exit`)
}

func (s *debugSession) step() {
	if !s.e.IsRunning() && s.frame > 0 {
		fmt.Fprintln(os.Stderr, "project has already stopped")
		return
	}
	if s.frame == 0 {
		s.e.Start()
	}
	s.frame++
	stamp := stepTimestamp.FormatString(time.Now())
	if err := s.e.Step(); err != nil {
		fmt.Fprintf(os.Stderr, "[%s] frame %d: %s\n", stamp, s.frame, color.Red.Sprint(err.Error()))
		return
	}
	fmt.Fprintf(os.Stderr, "[%s] frame %d done, running=%v\n", stamp, s.frame, s.e.IsRunning())
}

func (s *debugSession) runToEnd() {
	if s.frame == 0 {
		s.e.Start()
	}
	for s.e.IsRunning() {
		s.frame++
		if err := s.e.Step(); err != nil {
			fmt.Fprintln(os.Stderr, color.Red.Sprint(err.Error()))
			return
		}
	}
	fmt.Fprintln(os.Stderr, color.Green.Sprintf("stopped after %d frames", s.frame))
}

func (s *debugSession) printVars() {
	for i := range s.target.variables {
		fmt.Fprintf(os.Stderr, "%d: %s\n", i, s.target.Variable(i).ToString())
	}
}

func (s *debugSession) printVar(arg string) {
	idx, err := strconv.Atoi(arg)
	if err != nil || idx < 0 || idx >= len(s.target.variables) {
		fmt.Fprintf(os.Stderr, "no such variable %q\n", arg)
		return
	}
	fmt.Fprintf(os.Stderr, "%d: %s\n", idx, s.target.Variable(idx).ToString())
}

func (s *debugSession) printStatus() {
	fmt.Fprintf(os.Stderr, "frame=%d running=%v\n", s.frame, s.e.IsRunning())
}
