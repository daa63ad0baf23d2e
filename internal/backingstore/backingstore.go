// Package backingstore implements the per-session on-disk staging
// area that mirrors each loaded script's source text, keyed by
// process id. It is read-only once populated and is the only
// out-of-process resource the shell touches.
package backingstore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Sentinel errors surfaced to callers, per spec §7's load-error
// kinds.
var (
	ErrNotFound      = errors.New("backingstore: source file not found")
	ErrDuplicatePID  = errors.New("backingstore: pid already has a backing file")
	ErrEmptyScript   = errors.New("backingstore: script has no lines")
	ErrNoSuchProcess = errors.New("backingstore: no backing file for pid")
)

const dirName = "backing_store"

// Store is the on-disk, per-pid script staging area. It is not
// transactional: callers decide how to react to I/O failures, which
// are always logged on the operator log channel first.
type Store struct {
	baseDir string
	dir     string
	log     zerolog.Logger
}

// New creates a Store rooted under baseDir (the backing_store
// directory is created inside it by Init).
func New(baseDir string, log zerolog.Logger) *Store {
	return &Store{
		baseDir: baseDir,
		dir:     filepath.Join(baseDir, dirName),
		log:     log,
	}
}

// Init creates the store directory, wiping any prior content. Safe to
// call multiple times.
func (s *Store) Init() error {
	if err := os.RemoveAll(s.dir); err != nil {
		s.log.Error().Err(err).Msg("backingstore: failed to clear existing store directory")
		return fmt.Errorf("backingstore: init: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.log.Error().Err(err).Msg("backingstore: failed to create store directory")
		return fmt.Errorf("backingstore: init: %w", err)
	}
	return nil
}

func (s *Store) filename(pid uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d.process", pid))
}

// CopyIn copies path into the store under pid, returning the
// authoritative line count: the number of '\n' bytes, plus one more
// if the file is non-empty and does not end in '\n'. An empty source
// file yields a line count of 0 (ErrEmptyScript), matching the
// original shell's cp_to_store treating n_lines <= 0 as a failure to
// load.
func (s *Store) CopyIn(path string, pid uint64) (int, error) {
	dest := s.filename(pid)
	if _, err := os.Stat(dest); err == nil {
		return 0, ErrDuplicatePID
	}

	src, err := os.Open(path)
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("backingstore: source script unreadable")
		return 0, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		s.log.Error().Err(err).Uint64("pid", pid).Msg("backingstore: failed to create backing file")
		return 0, fmt.Errorf("backingstore: copy_in: %w", err)
	}
	defer out.Close()

	r := bufio.NewReader(src)
	w := bufio.NewWriter(out)

	lines := 0
	sawAny := false
	endedInNewline := false
	for {
		b, rerr := r.ReadByte()
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			s.log.Error().Err(rerr).Msg("backingstore: read error while copying script")
			return 0, fmt.Errorf("backingstore: copy_in: %w", rerr)
		}
		sawAny = true
		if b == '\n' {
			lines++
			endedInNewline = true
		} else {
			endedInNewline = false
		}
		if werr := w.WriteByte(b); werr != nil {
			s.log.Error().Err(werr).Msg("backingstore: write error while copying script")
			return 0, fmt.Errorf("backingstore: copy_in: %w", werr)
		}
	}
	if err := w.Flush(); err != nil {
		s.log.Error().Err(err).Uint64("pid", pid).Msg("backingstore: failed to flush backing file")
		return 0, fmt.Errorf("backingstore: copy_in: %w", err)
	}
	if sawAny && !endedInNewline {
		lines++
	}
	if lines == 0 {
		_ = os.Remove(dest)
		return 0, ErrEmptyScript
	}
	return lines, nil
}

// LoadPage copies lines [startLine, startLine+len(dest)) into dest. If
// fewer lines remain, the remaining destination slots are cleared to
// "". Lines are stored with their trailing newline, if present.
func (s *Store) LoadPage(pid uint64, startLine int, dest []string) error {
	f, err := os.Open(s.filename(pid))
	if err != nil {
		s.log.Error().Err(err).Uint64("pid", pid).Msg("backingstore: failed to open backing file for read")
		return fmt.Errorf("%w: pid %d", ErrNoSuchProcess, pid)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	line := 0
	for line < startLine {
		_, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// startLine is past the end of the file: clear the
				// whole destination and report nothing read, per
				// spec §7's read-past-end policy (logged, not an
				// error the caller must unwind).
				for i := range dest {
					dest[i] = ""
				}
				s.log.Warn().Uint64("pid", pid).Int("start_line", startLine).Msg("backingstore: read past end of file")
				return nil
			}
			s.log.Error().Err(err).Uint64("pid", pid).Msg("backingstore: read error while loading page")
			return fmt.Errorf("backingstore: load_page: %w", err)
		}
		line++
	}

	for i := range dest {
		text, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			s.log.Error().Err(err).Uint64("pid", pid).Msg("backingstore: read error while loading page")
			return fmt.Errorf("backingstore: load_page: %w", err)
		}
		if text == "" && err == io.EOF {
			dest[i] = ""
			continue
		}
		dest[i] = text
	}
	return nil
}

// Remove deletes the pid's backing file.
func (s *Store) Remove(pid uint64) error {
	if err := os.Remove(s.filename(pid)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Uint64("pid", pid).Msg("backingstore: remove: no such backing file")
			return nil
		}
		s.log.Error().Err(err).Uint64("pid", pid).Msg("backingstore: failed to remove backing file")
		return fmt.Errorf("backingstore: remove: %w", err)
	}
	return nil
}

// Clear removes all files and the store directory. Invoked on shell
// exit.
func (s *Store) Clear() error {
	if err := os.RemoveAll(s.dir); err != nil {
		s.log.Error().Err(err).Msg("backingstore: failed to clear store")
		return fmt.Errorf("backingstore: clear: %w", err)
	}
	return nil
}
