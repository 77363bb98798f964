package reconcile

import (
	"errors"
	"fmt"
)

// Outcome is the result of reconciling one item against its catalog.
type Outcome int

const (
	// Unchanged means the source record has not changed since the last import.
	Unchanged Outcome = iota
	// New is a first import.
	New
	// Check is a re-examined item that is still held.
	Check
	// Failed means the catalog could not be consulted.
	Failed
	// Delete means the consortium or platform no longer holds the title.
	Delete
	// None means the title is held, but not by any local library.
	None
)

// String returns the outcome tag used in batch reports and logs.
func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case New:
		return "new"
	case Check:
		return "check"
	case Failed:
		return "failed"
	case Delete:
		return "delete"
	case None:
		return "none"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Mode says why an item is being reconciled.
type Mode int

const (
	// ModeImport is the first sight of a record.
	ModeImport Mode = iota
	// ModeUpdate is an importer update carrying a source change date.
	ModeUpdate
	// ModeRecheck is a batch sweep.
	ModeRecheck
)

func (m Mode) String() string {
	switch m {
	case ModeImport:
		return "import"
	case ModeUpdate:
		return "update"
	case ModeRecheck:
		return "recheck"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Error kinds reported through ErrorKind.
const (
	KindNotFound  = "not_found"
	KindTransport = "transport"
)

// ErrItemNotFound is wrapped by errors for unknown item ids.
var ErrItemNotFound = errors.New("item not found")

// Error is a classified reconciliation failure.
type Error struct {
	Kind   string
	ItemID int64
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("reconcile item %d: %s", e.ItemID, e.Kind)
	}
	return fmt.Sprintf("reconcile item %d: %v", e.ItemID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind implements store.ErrorClassifier.
func (e *Error) ErrorKind() string { return e.Kind }
