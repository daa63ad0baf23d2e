package process

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fynnsu/shellvm/internal/backingstore"
	"github.com/fynnsu/shellvm/internal/frame"
)

// Sentinel load-error kinds, spec §6/§7.
var (
	ErrNotFound     = backingstore.ErrNotFound
	ErrDuplicatePID = backingstore.ErrDuplicatePID
	ErrOOM          = errors.New("process: out of memory allocating pcb")
)

// Loader admits scripts: it owns pid assignment, drives backing-store
// copy-in, and prefetches the first (and, if present, second) page of
// a newly loaded script, per spec §4.6.
type Loader struct {
	bs        *backingstore.Store
	fs        *frame.Store
	frameSize int
	log       zerolog.Logger

	nextPID PID
}

// NewLoader builds a Loader over the given backing store and frame
// store. frameSize must match the frame store's own frame size; it is
// threaded through separately because page/offset arithmetic belongs
// to the process model, not the frame store.
func NewLoader(bs *backingstore.Store, fs *frame.Store, frameSize int, log zerolog.Logger) *Loader {
	return &Loader{bs: bs, fs: fs, frameSize: frameSize, log: log}
}

// LoadScript admits path as a new process: assigns a pid, copies the
// script into the backing store, builds an empty page table sized to
// the script's page count, and prefetches page 0 (and page 1, if the
// script is longer than one frame).
func (l *Loader) LoadScript(path string) (*PCB, error) {
	pid := l.nextPID
	n, err := l.bs.CopyIn(path, pid)
	if err != nil {
		return nil, err
	}
	l.nextPID++

	nPages := (n + l.frameSize - 1) / l.frameSize
	pt := make([]int, nPages)
	for i := range pt {
		pt[i] = NotResident
	}

	pcb := &PCB{PID: pid, Bound: n, PC: 0, pageTable: pt}

	if err := l.loadPage(pcb, 0); err != nil {
		l.log.Warn().Err(err).Uint64("pid", pid).Msg("process: prefetch of page 0 failed")
	}
	if n > l.frameSize {
		if err := l.loadPage(pcb, 1); err != nil {
			l.log.Warn().Err(err).Uint64("pid", pid).Msg("process: prefetch of page 1 failed")
		}
	}

	return pcb, nil
}

// loadPage implements spec §4.3: allocate a frame (possibly evicting),
// load the page's lines from the backing store, stamp the frame's key,
// and update the PCB's page table.
func (l *Loader) loadPage(pcb *PCB, page int) error {
	frameIdx, err := l.fs.Allocate()
	if err != nil {
		pcb.faultRetries++
		l.log.Error().Err(err).Uint64("pid", pcb.PID).Int("page", page).Msg("process: frame allocation failed")
		return fmt.Errorf("process: load_page: %w", err)
	}

	lines := make([]string, l.frameSize)
	if err := l.bs.LoadPage(pcb.PID, page*l.frameSize, lines); err != nil {
		pcb.faultRetries++
		l.log.Error().Err(err).Uint64("pid", pcb.PID).Int("page", page).Msg("process: backing-store read failed")
		return fmt.Errorf("process: load_page: %w", err)
	}

	l.fs.SetPage(frameIdx, frame.Key{PID: pcb.PID, Page: page}, lines)
	pcb.setFrame(page, frameIdx)
	return nil
}

// ReadInstruction implements spec §4.4: fault detection plus
// frame-key validation. It returns (line, false, nil) on a successful
// read, or ("", true, err) on a page fault — err is non-nil only if
// the triggered page load itself failed (surfaced per Open Question 2
// rather than silently retried forever).
func (l *Loader) ReadInstruction(pcb *PCB) (line string, fault bool, err error) {
	page, offset := pageOffset(pcb.PC, l.frameSize)

	f := pcb.frameOf(page)
	if f == NotResident {
		return "", true, l.loadPage(pcb, page)
	}

	key, ok := l.fs.Key(f)
	if !ok || key != (frame.Key{PID: pcb.PID, Page: page}) {
		// Frame was stolen by an eviction; the page-table entry is
		// stale. Reload rather than trust it.
		return "", true, l.loadPage(pcb, page)
	}

	l.fs.Touch(f)
	return l.fs.Line(f, offset), false, nil
}

// Free removes a completed process's backing-store file. Its page
// table becomes unreachable garbage the moment the PCB itself is
// dropped, which happens when the scheduler discards its reference.
func (l *Loader) Free(pcb *PCB) error {
	return l.bs.Remove(pcb.PID)
}
