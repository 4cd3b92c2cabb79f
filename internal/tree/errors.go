// Package tree applies path-addressed immutable updates to a resume document.
package tree

import (
	"errors"
	"fmt"
)

var (
	// ErrPathNotAddressable indicates a path that crosses a non-container, misses an
	// intermediate container, or targets the wrong kind of node for the operation.
	ErrPathNotAddressable = errors.New("path not addressable")

	// ErrIndexOutOfRange indicates a sequence index outside [0, length).
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Error describes a failed mutation.
type Error struct {
	Op      string // "set", "insert", "remove" or "move"
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %q: %v: %s", e.Op, e.Path, e.Err, e.Message)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
