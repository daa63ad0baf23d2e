// Package frame implements the physical frame store: a fixed-size
// array of frames, each holding up to FrameSize lines, an LRU
// eviction order over the frames, and the frame-key validation
// discipline used to detect stale page-table entries after an
// eviction.
package frame

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Key identifies the (pid, page) a frame currently holds. The original
// shell printed this as a string ("pid_<n>_page_<m>") purely to reuse
// its string-keyed variable-store slot for metadata; nothing in the
// contract requires a textual key, so this is a plain comparable
// struct value.
type Key struct {
	PID  uint64
	Page int
}

// entry is the physical storage of one frame: up to FrameSize lines, plus the
// one metadata slot (the key) that records which (pid, page) it
// currently belongs to. hasKey distinguishes "never loaded" from
// "loaded with a key equal to the zero Key" (pid 0, page 0 is valid).
type entry struct {
	hasKey bool
	key    Key
	lines  []string
}

// Store is the fixed-size frame store plus its LRU manager.
type Store struct {
	frameSize int
	frames    []entry
	lru       *lruList

	log       zerolog.Logger
	victimOut io.Writer
}

// NewStore creates a Store of nFrames frames, each able to hold
// frameSize lines. victimOut receives the exact eviction log block
// text (spec §4.2); log receives structured diagnostics about faults
// and evictions. There is no default for a nil victimOut (falling back
// to the zerolog logger's own writer would break the contractual,
// field-free format), so callers must supply one explicitly (vm.New
// wires os.Stdout).
func NewStore(frameSize, nFrames int, log zerolog.Logger, victimOut io.Writer) *Store {
	frames := make([]entry, nFrames)
	for i := range frames {
		frames[i].lines = make([]string, frameSize)
	}
	return &Store{
		frameSize: frameSize,
		frames:    frames,
		lru:       newLRUList(nFrames),
		log:       log,
		victimOut: victimOut,
	}
}

// NumFrames returns the number of physical frames.
func (s *Store) NumFrames() int { return len(s.frames) }

// Allocate selects the front of the LRU list as the next frame to use,
// moves it to the back (most-recently-used position), evicting its
// current contents first if it is occupied. It returns the frame
// index, now empty and ready for SetPage.
func (s *Store) Allocate() (int, error) {
	idx := s.lru.front()
	s.lru.touch(idx)
	s.evictIfOccupied(idx)
	return idx, nil
}

// evictIfOccupied prints the victim-page-contents log block for frame
// idx if it currently holds a page, then clears it.
func (s *Store) evictIfOccupied(idx int) {
	f := &s.frames[idx]
	if !f.hasKey {
		return
	}
	s.log.Debug().Int("frame", idx).Uint64("victim_pid", f.key.PID).Int("victim_page", f.key.Page).Msg("evicting frame")

	fmt.Fprintln(s.victimOut, "Page fault! Victim page contents:")
	for _, line := range f.lines {
		if line == "" {
			continue
		}
		fmt.Fprint(s.victimOut, line)
	}
	fmt.Fprintln(s.victimOut, "End of victim page contents.")

	f.hasKey = false
	f.key = Key{}
	for i := range f.lines {
		f.lines[i] = ""
	}
}

// SetPage writes key and lines into frame idx, replacing whatever was
// there (the caller is responsible for having evicted it via
// Allocate). lines shorter than frameSize are padded with "".
func (s *Store) SetPage(idx int, key Key, lines []string) {
	f := &s.frames[idx]
	f.hasKey = true
	f.key = key
	for i := 0; i < s.frameSize; i++ {
		if i < len(lines) {
			f.lines[i] = lines[i]
		} else {
			f.lines[i] = ""
		}
	}
}

// Key returns the key currently held by frame idx, and whether the
// frame is occupied at all.
func (s *Store) Key(idx int) (Key, bool) {
	f := &s.frames[idx]
	return f.key, f.hasKey
}

// Line returns the line at the given offset within frame idx.
func (s *Store) Line(idx, offset int) string {
	return s.frames[idx].lines[offset]
}

// Touch moves frame idx to the back of the LRU list (most recently
// used). Called on every successful instruction read.
func (s *Store) Touch(idx int) {
	s.lru.touch(idx)
}

// ResetAll clears every frame to empty without evicting (no log
// output). Correct only when the caller has confirmed no PCB holds a
// page-table entry into this store (spec §4.2, invoked when
// n_processes drops to zero).
func (s *Store) ResetAll() {
	for i := range s.frames {
		s.frames[i].hasKey = false
		s.frames[i].key = Key{}
		for j := range s.frames[i].lines {
			s.frames[i].lines[j] = ""
		}
	}
}

// WellFormed reports whether the LRU list still satisfies the
// well-formedness invariant (spec §8 property 2). Exposed for tests.
func (s *Store) WellFormed() bool {
	return s.lru.wellFormed()
}
