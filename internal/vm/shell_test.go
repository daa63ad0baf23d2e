package vm

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fynnsu/shellvm/internal/process"
	"github.com/fynnsu/shellvm/internal/scheduler"
	"github.com/fynnsu/shellvm/internal/shellmem"
)

func writeScript(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return p
}

func TestShell_New_RejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestShell_EndToEnd_FCFS(t *testing.T) {
	srcDir := t.TempDir()
	baseDir := t.TempDir()
	var victim bytes.Buffer

	sh, err := New(Config{
		Config:    shellmem.Config{FrameSize: 3, NFrames: 2, VarMemSize: 4},
		BaseDir:   baseDir,
		Logger:    zerolog.Nop(),
		VictimOut: &victim,
	})
	require.NoError(t, err)
	require.NoError(t, sh.SetPolicy(scheduler.FCFS))

	path := writeScript(t, srcDir, "a.txt", []string{"print A", "print B", "print C"})
	pcb, err := sh.LoadScript(path)
	require.NoError(t, err)
	require.NoError(t, sh.Submit(pcb))

	var trace []string
	exec := func(pcb *process.PCB, line string) error {
		trace = append(trace, strings.TrimSpace(line))
		return nil
	}
	require.NoError(t, sh.Run(context.Background(), exec))

	assert.Equal(t, []string{"print A", "print B", "print C"}, trace)
	assert.False(t, sh.HasWork())

	require.NoError(t, sh.Shutdown())
	_, statErr := os.Stat(filepath.Join(baseDir, "backing_store"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestShell_EndToEnd_EvictionLogEmittedUnderMemoryPressure(t *testing.T) {
	srcDir := t.TempDir()
	baseDir := t.TempDir()
	var victim bytes.Buffer

	sh, err := New(Config{
		Config:    shellmem.Config{FrameSize: 3, NFrames: 2, VarMemSize: 0},
		BaseDir:   baseDir,
		Logger:    zerolog.Nop(),
		VictimOut: &victim,
	})
	require.NoError(t, err)
	require.NoError(t, sh.SetPolicy(scheduler.FCFS))

	// Two scripts, four pages total (both pages of each are prefetched),
	// only two frames: loading B's pages must evict A's.
	pathA := writeScript(t, srcDir, "a.txt", []string{"a1", "a2", "a3", "a4"})
	pathB := writeScript(t, srcDir, "b.txt", []string{"b1", "b2", "b3", "b4"})

	pcbA, err := sh.LoadScript(pathA)
	require.NoError(t, err)
	require.NoError(t, sh.Submit(pcbA))
	pcbB, err := sh.LoadScript(pathB)
	require.NoError(t, err)
	require.NoError(t, sh.Submit(pcbB))

	require.NoError(t, sh.Run(context.Background(), func(pcb *process.PCB, line string) error { return nil }))

	out := victim.String()
	assert.Contains(t, out, "Page fault! Victim page contents:")
	assert.Contains(t, out, "End of victim page contents.")
}

func TestShell_SetPolicy_RejectsChangeWhileBusy(t *testing.T) {
	srcDir := t.TempDir()
	baseDir := t.TempDir()
	sh, err := New(Config{Config: shellmem.Config{FrameSize: 4, NFrames: 2, VarMemSize: 0}, BaseDir: baseDir, Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.NoError(t, sh.SetPolicy(scheduler.FCFS))

	pcb, err := sh.LoadScript(writeScript(t, srcDir, "a.txt", []string{"a1"}))
	require.NoError(t, err)
	require.NoError(t, sh.Submit(pcb))

	assert.ErrorIs(t, sh.SetPolicy(scheduler.RR), scheduler.ErrBusy)
}
