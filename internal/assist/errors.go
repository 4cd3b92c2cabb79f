// Package assist turns AI writing commands into field transforms.
package assist

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCommand is returned for a command outside Commands.
	ErrUnknownCommand = errors.New("unknown assist command")
	// ErrEmptyText is returned when the field has no text to work on.
	ErrEmptyText = errors.New("field has no text")
	// ErrNotText is returned when the field holds something other than a string.
	ErrNotText = errors.New("field is not text")
)

// APICallError reports a failed model call.
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// ParseError reports a model reply that could not be read.
type ParseError struct {
	Reply string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unreadable model reply: %v", e.Cause)
	}
	return "unreadable model reply"
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
