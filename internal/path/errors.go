// Package path parses and resolves dot-separated addresses into a resume document.
package path

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPath indicates a path string that does not follow the dot-segment syntax.
	ErrMalformedPath = errors.New("malformed path")

	// ErrNotFound indicates a path that does not resolve against a document.
	ErrNotFound = errors.New("path not found")
)

// Error describes a failure to parse or resolve a path.
type Error struct {
	Op     string // "parse" or "resolve"
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %q: %v: %s", e.Op, e.Path, e.Err, e.Reason)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
