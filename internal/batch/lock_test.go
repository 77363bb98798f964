package batch_test

import (
	"errors"
	"path/filepath"
	"testing"

	"fontana/internal/batch"
)

func TestRunLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fontana.lock")
	first := batch.NewRunLock(path)
	second := batch.NewRunLock(path)

	if err := first.TryLock(); err != nil {
		t.Fatalf("first TryLock: %v", err)
	}
	if err := second.TryLock(); !errors.Is(err, batch.ErrBusy) {
		t.Fatalf("second TryLock = %v, want ErrBusy", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := second.TryLock(); err != nil {
		t.Fatalf("TryLock after release: %v", err)
	}
	_ = second.Unlock()
}
