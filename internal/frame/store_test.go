package frame

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(frameSize, nFrames int) (*Store, *bytes.Buffer) {
	var victim bytes.Buffer
	s := NewStore(frameSize, nFrames, zerolog.Nop(), &victim)
	return s, &victim
}

func TestStore_AllocateFillsEmptyFramesFirst(t *testing.T) {
	s, _ := newTestStore(2, 3)
	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		idx, err := s.Allocate()
		require.NoError(t, err)
		assert.False(t, seen[idx], "frame %d allocated twice before any were occupied", idx)
		seen[idx] = true
		s.SetPage(idx, Key{PID: 1, Page: i}, []string{"a\n", "b\n"})
	}
	assert.Len(t, seen, 3)
}

func TestStore_EvictionLogFormat(t *testing.T) {
	s, victim := newTestStore(2, 1)
	idx, err := s.Allocate()
	require.NoError(t, err)
	s.SetPage(idx, Key{PID: 1, Page: 0}, []string{"line one\n", "line two\n"})

	// Only one frame exists, so the next Allocate must evict it.
	idx2, err := s.Allocate()
	require.NoError(t, err)
	assert.Equal(t, idx, idx2)

	want := "Page fault! Victim page contents:\nline one\nline two\nEnd of victim page contents.\n"
	assert.Equal(t, want, victim.String())

	key, ok := s.Key(idx)
	assert.False(t, ok)
	assert.Equal(t, Key{}, key)
}

func TestStore_EvictionSkipsEmptyLineSlots(t *testing.T) {
	s, victim := newTestStore(3, 1)
	idx, _ := s.Allocate()
	// Only 1 of 3 slots populated (short final page).
	s.SetPage(idx, Key{PID: 7, Page: 2}, []string{"only line\n"})

	_, err := s.Allocate()
	require.NoError(t, err)

	want := "Page fault! Victim page contents:\nonly line\nEnd of victim page contents.\n"
	assert.Equal(t, want, victim.String())
}

func TestStore_TouchProtectsFromImmediateEviction(t *testing.T) {
	s, _ := newTestStore(1, 2)
	idxA, _ := s.Allocate()
	s.SetPage(idxA, Key{PID: 1, Page: 0}, []string{"a\n"})
	idxB, _ := s.Allocate()
	s.SetPage(idxB, Key{PID: 2, Page: 0}, []string{"b\n"})

	// idxA is now the front (least recently used). Touching it should
	// move it to the back, so the next allocation evicts idxB instead.
	s.Touch(idxA)
	victimIdx, err := s.Allocate()
	require.NoError(t, err)
	assert.Equal(t, idxB, victimIdx)
}

func TestStore_ResetAllClearsWithoutLogging(t *testing.T) {
	s, victim := newTestStore(2, 2)
	idx, _ := s.Allocate()
	s.SetPage(idx, Key{PID: 1, Page: 0}, []string{"x\n", "y\n"})

	s.ResetAll()

	assert.Empty(t, victim.String())
	for i := 0; i < s.NumFrames(); i++ {
		key, ok := s.Key(i)
		assert.False(t, ok)
		assert.Equal(t, Key{}, key)
	}
}

func TestStore_WellFormedAfterManyAllocations(t *testing.T) {
	s, _ := newTestStore(2, 4)
	for i := 0; i < 50; i++ {
		idx, err := s.Allocate()
		require.NoError(t, err)
		s.SetPage(idx, Key{PID: uint64(i), Page: 0}, []string{"x\n"})
		assert.True(t, s.WellFormed())
	}
}
