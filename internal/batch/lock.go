package batch

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrBusy is returned when another process holds the run lock.
var ErrBusy = errors.New("another batch run is in progress")

// RunLock serializes batch runs across the daemon and the CLI.
type RunLock struct {
	lock *flock.Flock
}

// NewRunLock prepares a lock at path. Nothing is held until TryLock.
func NewRunLock(path string) *RunLock {
	return &RunLock{lock: flock.New(path)}
}

// TryLock takes the lock without waiting, returning ErrBusy when it is held.
func (l *RunLock) TryLock() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock %s: %w", l.lock.Path(), err)
	}
	if !ok {
		return ErrBusy
	}
	return nil
}

// Unlock releases the lock.
func (l *RunLock) Unlock() error {
	return l.lock.Unlock()
}

// Path returns the lock file location.
func (l *RunLock) Path() string {
	return l.lock.Path()
}
