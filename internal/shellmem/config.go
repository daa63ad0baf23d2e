// Package shellmem describes the shell's memory layout: a single
// conceptual array of slots split into a variable-store prefix and a
// frame-store suffix, plus the compile-time-style constants that size
// each region.
package shellmem

import "fmt"

// Config holds the frame-layout constants a host must supply. They
// were Makefile-injected macros in the original C shell; here they
// are ordinary runtime fields validated once at construction.
type Config struct {
	// FrameSize is the number of script lines a single frame holds.
	FrameSize int
	// NFrames is the number of physical frames in the frame store.
	NFrames int
	// VarMemSize is the size, in slots, of the variable-store prefix.
	VarMemSize int
}

// FrameStoreSize returns FrameSize * NFrames.
func (c Config) FrameStoreSize() int {
	return c.FrameSize * c.NFrames
}

// ShellMemSize returns VarMemSize + FrameStoreSize().
func (c Config) ShellMemSize() int {
	return c.VarMemSize + c.FrameStoreSize()
}

// Validate enforces the invariants required at startup: FrameSize must
// be positive, NFrames must be at least 2, and the frame store size
// must be a positive multiple of FrameSize (true by construction here,
// but checked explicitly so a host that builds a Config by hand still
// gets the same guarantee the original shell enforced at main()).
func (c Config) Validate() error {
	if c.FrameSize < 1 {
		return fmt.Errorf("shellmem: FRAMESIZE must be >= 1, got %d", c.FrameSize)
	}
	if c.NFrames < 2 {
		return fmt.Errorf("shellmem: NFRAMES must be >= 2, got %d", c.NFrames)
	}
	if c.VarMemSize < 0 {
		return fmt.Errorf("shellmem: VARMEMSIZE must be >= 0, got %d", c.VarMemSize)
	}
	fss := c.FrameStoreSize()
	if fss <= 0 || fss%c.FrameSize != 0 {
		return fmt.Errorf("shellmem: FRAMESTORESIZE (%d) must be a positive multiple of FRAMESIZE (%d)", fss, c.FrameSize)
	}
	return nil
}

// Pages returns ceil(bound/FrameSize), the number of pages a script of
// the given instruction count occupies.
func (c Config) Pages(bound int) int {
	return (bound + c.FrameSize - 1) / c.FrameSize
}
