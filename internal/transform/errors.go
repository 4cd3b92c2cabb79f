// Package transform coordinates asynchronous rewrites of single document fields.
package transform

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrTransformFailed indicates the external transform rejected. It is expected in
	// normal operation and never changes the document.
	ErrTransformFailed = errors.New("transform failed")

	// ErrTargetClosed is returned by a Target that no longer accepts updates, such as a
	// draft whose session has been saved or cancelled. Pending transforms that resolve
	// against a closed target are cancelled.
	ErrTargetClosed = errors.New("transform target closed")
)

// FailedError carries the cause of a rejected transform.
type FailedError struct {
	Path      string
	RequestID uuid.UUID
	Cause     error
}

func (e *FailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transform %s for %q failed: %v", e.RequestID, e.Path, e.Cause)
	}
	return fmt.Sprintf("transform %s for %q failed", e.RequestID, e.Path)
}

// Unwrap exposes both ErrTransformFailed and the provider's error to errors.Is.
func (e *FailedError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrTransformFailed}
	}
	return []error{ErrTransformFailed, e.Cause}
}
