// Package editor is the single entry point renderers use to change a resume: field
// edits, section drafts and asynchronous field rewrites, all against one canonical
// document.
package editor

import "errors"

// ErrClosed is returned by every mutating call after Close.
var ErrClosed = errors.New("editor closed")
