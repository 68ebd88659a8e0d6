// Package lockfile implements the exclusive directory lock that gives a
// session sole ownership of a store for its lifetime, following the
// flock-based sentinel file used throughout the beads lineage.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Name is the sentinel file's name inside a store directory.
const Name = "engram.lock"

// ErrLocked is returned when the lock is already held by another process.
var ErrLocked = errors.New("lock held by another process")

// IsLocked reports whether err indicates the lock is held elsewhere.
func IsLocked(err error) bool {
	return errors.Is(err, ErrLocked)
}

// Lock is a held exclusive lock on a store directory's sentinel file.
type Lock struct {
	f    *os.File
	path string
}

// Acquire attempts to take the exclusive, non-blocking lock on dir's
// sentinel file, creating it if absent.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, Name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}
	if err := flockExclusiveNonBlocking(f); err != nil {
		f.Close()
		if isLockConflict(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("acquiring lock %s: %w", path, err)
	}
	// Record our pid for diagnostics; best-effort, never blocks acquisition.
	_ = f.Truncate(0)
	_, _ = f.WriteAt([]byte(fmt.Sprintf("%d\n", os.Getpid())), 0)
	return &Lock{f: f, path: path}, nil
}

// Release releases the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := flockUnlock(l.f)
	closeErr := l.f.Close()
	l.f = nil
	if err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.path, err)
	}
	return closeErr
}
