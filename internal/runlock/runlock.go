// Package runlock guards an output directory so only one translate run
// writes into it at a time.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"subtrans/internal/services"
)

// FileName is the lock file created inside the guarded directory.
const FileName = ".subtrans.lock"

// ErrHeld reports that another process owns the lock.
var ErrHeld = errors.New("another subtrans run is already writing to this directory")

// Lock is a held directory lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// Acquire takes a non-blocking exclusive lock on dir/.subtrans.lock,
// creating dir when missing. A held lock fails fast with a configuration
// error wrapping ErrHeld.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, "runlock", "mkdir", dir, err)
	}
	path := filepath.Join(dir, FileName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "runlock", "acquire", path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "runlock", "acquire", path, ErrHeld)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release unlocks and removes the lock file. Safe on a nil lock.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	l.lock = nil
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}
