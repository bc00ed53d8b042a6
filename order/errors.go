package order

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownItem is returned when a proposed item is not on the menu.
	ErrUnknownItem = errors.New("unknown item")
	// ErrAmbiguousItem is returned when a proposed item names a family of items.
	ErrAmbiguousItem = errors.New("ambiguous item")
	// ErrUnattachable is returned when an attribute update has no line to land on.
	ErrUnattachable = errors.New("no line to attach update to")
	// ErrInconsistentLine is returned when a line carries a value outside its
	// declared domain. Callers treat it as an internal fault.
	ErrInconsistentLine = errors.New("inconsistent line")
)

// MergeError carries the update that could not be applied and, for ambiguous
// items, the options the customer has to choose from.
type MergeError struct {
	Err     error
	Term    string
	Options []string
	Update  Update
}

func (e *MergeError) Error() string {
	if e.Term != "" {
		return fmt.Sprintf("merge %s %q: %v", e.Update.Action, e.Term, e.Err)
	}
	return fmt.Sprintf("merge %s: %v", e.Update.Action, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }
