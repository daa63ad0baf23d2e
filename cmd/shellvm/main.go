// Command shellvm is a thin demonstration entry point for the shellvm
// core: it builds a vm.Shell, loads the scripts named on the command
// line, and runs them to completion under a chosen scheduling policy.
// It stands in for the out-of-scope interactive interpreter (spec §1)
// just enough to exercise the core API end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fynnsu/shellvm/internal/process"
	"github.com/fynnsu/shellvm/internal/scheduler"
	"github.com/fynnsu/shellvm/internal/shellmem"
	"github.com/fynnsu/shellvm/internal/vm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("shellvm", flag.ContinueOnError)
	policyFlag := fs.String("policy", "fcfs", "scheduling policy: fcfs, sjf, rr, aging")
	frameSize := fs.Int("framesize", 3, "lines per frame")
	nFrames := fs.Int("nframes", 3, "number of physical frames")
	varMem := fs.Int("varmem", 0, "variable store size (slots)")
	baseDir := fs.String("dir", ".", "base directory for backing_store/")
	verbose := fs.Bool("verbose", false, "enable diagnostic logging")
	if err := fs.Parse(args); err != nil {
		return -2
	}

	policy, err := parsePolicy(*policyFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -2
	}

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	shell, err := vm.New(vm.Config{
		Config: shellmem.Config{
			FrameSize:  *frameSize,
			NFrames:    *nFrames,
			VarMemSize: *varMem,
		},
		BaseDir:   *baseDir,
		Logger:    logger,
		VictimOut: os.Stdout,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -2
	}
	defer shell.Shutdown()

	if err := shell.SetPolicy(policy); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	for _, path := range fs.Args() {
		pcb, err := shell.LoadScript(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", path, err)
			return 1
		}
		if err := shell.Submit(pcb); err != nil {
			fmt.Fprintf(os.Stderr, "failed to submit %s: %v\n", path, err)
			return 1
		}
	}

	if err := shell.Run(context.Background(), echoExecutor); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}

// echoExecutor feeds each instruction to stdout in place of the
// out-of-scope command interpreter.
func echoExecutor(pcb *process.PCB, line string) error {
	fmt.Print(strings.TrimRight(line, "\n") + "\n")
	return nil
}

func parsePolicy(s string) (scheduler.Policy, error) {
	switch strings.ToLower(s) {
	case "fcfs":
		return scheduler.FCFS, nil
	case "sjf":
		return scheduler.SJF, nil
	case "rr":
		return scheduler.RR, nil
	case "aging":
		return scheduler.AGING, nil
	default:
		return scheduler.None, fmt.Errorf("unknown policy %q (want fcfs, sjf, rr, or aging)", s)
	}
}
