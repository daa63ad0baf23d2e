// Package vm bundles the backing store, frame store, and scheduler
// into a single explicit context object, replacing the process-wide
// singletons of the original shell (spec §9, "Global state"). A Shell
// is created once at startup and torn down once at shutdown; nothing
// in this package is a package-level global.
package vm

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/fynnsu/shellvm/internal/backingstore"
	"github.com/fynnsu/shellvm/internal/frame"
	"github.com/fynnsu/shellvm/internal/process"
	"github.com/fynnsu/shellvm/internal/scheduler"
	"github.com/fynnsu/shellvm/internal/shellmem"
)

// Config is the full set of parameters a host must supply to build a
// Shell.
type Config struct {
	shellmem.Config

	// BaseDir is the directory under which backing_store/ is created.
	BaseDir string

	// Logger receives structured diagnostics. The zero value (a
	// disabled logger) is valid and silences all diagnostic output
	// while still emitting the contractual eviction-log block.
	Logger zerolog.Logger

	// VictimOut receives the exact eviction-log block text (spec
	// §4.2). Defaults to os.Stdout if nil.
	VictimOut io.Writer
}

// Shell is the explicit context object wiring every core subsystem
// together.
type Shell struct {
	cfg shellmem.Config
	log zerolog.Logger

	bs  *backingstore.Store
	fs  *frame.Store
	ld  *process.Loader
	sch *scheduler.Scheduler
}

// New validates cfg and constructs a Shell. Invalid frame settings are
// a fatal configuration error (spec §7), returned rather than
// panicking since this is a library.
func New(cfg Config) (*Shell, error) {
	if err := cfg.Config.Validate(); err != nil {
		return nil, fmt.Errorf("vm: invalid configuration: %w", err)
	}

	victimOut := cfg.VictimOut
	if victimOut == nil {
		victimOut = os.Stdout
	}

	bs := backingstore.New(cfg.BaseDir, cfg.Logger)
	if err := bs.Init(); err != nil {
		return nil, err
	}

	fs := frame.NewStore(cfg.FrameSize, cfg.NFrames, cfg.Logger, victimOut)
	ld := process.NewLoader(bs, fs, cfg.FrameSize, cfg.Logger)
	sch := scheduler.New(ld, fs, cfg.Logger)

	cfg.Logger.Info().
		Int("frame_store_size", cfg.Config.FrameStoreSize()).
		Int("var_mem_size", cfg.VarMemSize).
		Msg("shell initialized")

	return &Shell{cfg: cfg.Config, log: cfg.Logger, bs: bs, fs: fs, ld: ld, sch: sch}, nil
}

// LoadScript admits a script as a new process, spec §4.6/§6.
func (s *Shell) LoadScript(path string) (*process.PCB, error) {
	return s.ld.LoadScript(path)
}

// Submit enqueues a PCB under the active policy.
func (s *Shell) Submit(pcb *process.PCB) error {
	return s.sch.Add(pcb)
}

// SetPolicy changes the active scheduling policy. Fails with
// scheduler.ErrBusy if any process is present.
func (s *Shell) SetPolicy(p scheduler.Policy) error {
	return s.sch.SetPolicy(p)
}

// Policy returns the active scheduling policy.
func (s *Shell) Policy() scheduler.Policy {
	return s.sch.Policy()
}

// HasWork reports whether any process is resident or current.
func (s *Shell) HasWork() bool {
	return s.sch.HasWork()
}

// Run drains the scheduler's queue until quiescent or ctx is
// cancelled. exec is the caller-supplied command interpreter hook; it
// must not call Run itself (spec §5/§9) — doing so returns
// scheduler.ErrAlreadyRunning from the nested call rather than
// recursing.
func (s *Shell) Run(ctx context.Context, exec scheduler.Executor) error {
	return s.sch.Run(ctx, exec)
}

// Shutdown clears the backing store. Invoked on shell exit.
func (s *Shell) Shutdown() error {
	return s.bs.Clear()
}
