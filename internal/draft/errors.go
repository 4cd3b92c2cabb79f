// Package draft implements section-scoped edit sessions over a resume document.
package draft

import (
	"errors"
	"fmt"
)

// Session state errors
var (
	// ErrSessionAlreadyOpen indicates Start was called while a section is being edited.
	ErrSessionAlreadyOpen = errors.New("edit session already open")

	// ErrNoActiveSession indicates an edit, save or cancel without an open session.
	ErrNoActiveSession = errors.New("no active edit session")

	// ErrUnknownSection indicates a section id that is not part of the document model.
	ErrUnknownSection = errors.New("unknown section")
)

// StateError reports a call that is invalid in the session's current state.
type StateError struct {
	Op        string
	SectionID string // the open section, if any
	Err       error
}

func (e *StateError) Error() string {
	if e.SectionID != "" {
		return fmt.Sprintf("%s: %v (editing %s)", e.Op, e.Err, e.SectionID)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}
