// Package process implements the process control block, the script
// loader (backing-store admission plus page prefetch), and the
// page-fault-aware instruction read that ties the PCB's page table to
// the frame store.
package process

// NotResident is the page-table sentinel meaning "no frame currently
// holds this page".
const NotResident = -1

// PID is a monotonic, session-unique process identifier.
type PID = uint64

// PCB is a process control block: identity, instruction bound,
// program counter, and a page table mapping logical pages to frame
// indices (or NotResident).
//
// A PCB is created by Loader.LoadScript and mutated only by the
// scheduler (pc advance) and by the page-load path (page table
// update) — never concurrently, since the scheduler is the sole
// executor (spec §5).
type PCB struct {
	PID   PID
	Bound int
	PC    int

	pageTable []int

	// faultRetries counts page-load failures for this PCB, both from the
	// prefetch in LoadScript and from faults while reading its
	// instructions (not faults in general — a fault whose load succeeds
	// does not increment it). Purely observational; see
	// DESIGN.md's Open Question 2 resolution.
	faultRetries int
}

// FaultRetries returns the number of page-load failures this PCB has
// experienced so far.
func (p *PCB) FaultRetries() int { return p.faultRetries }

// Done reports whether the process has executed its last instruction.
func (p *PCB) Done() bool { return p.PC >= p.Bound }

// pageOffset splits an instruction index into its (page, offset)
// pair given a frame size.
func pageOffset(instr, frameSize int) (page, offset int) {
	return instr / frameSize, instr % frameSize
}

// frameOf returns the frame index currently mapped for page, or
// NotResident.
func (p *PCB) frameOf(page int) int {
	if page < 0 || page >= len(p.pageTable) {
		return NotResident
	}
	return p.pageTable[page]
}

func (p *PCB) setFrame(page, frame int) {
	p.pageTable[page] = frame
}
