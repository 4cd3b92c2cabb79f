package editor

import (
	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/draft"
	"github.com/jonathan/resume-editor/internal/path"
	"github.com/jonathan/resume-editor/internal/transform"
)

// canonicalTarget lets rewrites read and write the canonical document.
type canonicalTarget struct {
	e *Editor
}

func (t *canonicalTarget) Lookup(p path.Path) (any, error) {
	t.e.mu.RLock()
	defer t.e.mu.RUnlock()
	if t.e.closed {
		return nil, transform.ErrTargetClosed
	}
	return path.Resolve(t.e.doc, p)
}

// Update writes into the canonical document. Commit hooks run later, from the
// editor's settle observer, once no lock is held.
func (t *canonicalTarget) Update(fn func(document.Document) (document.Document, error)) error {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()
	if t.e.closed {
		return transform.ErrTargetClosed
	}
	next, err := fn(t.e.doc)
	if err != nil {
		return err
	}
	t.e.doc = next
	return nil
}

// draftTarget is bound to one section session. Once that session closes it refuses
// every call, so late rewrites are cancelled instead of leaking into a later draft.
type draftTarget struct {
	e          *Editor
	generation uint64
}

// open reports whether the session this target was made for is still open.
// Caller holds t.e.mu.
func (t *draftTarget) open() bool {
	s := t.e.session
	return !t.e.closed && s.State() == draft.Editing && s.Generation() == t.generation
}

func (t *draftTarget) Lookup(p path.Path) (any, error) {
	t.e.mu.RLock()
	defer t.e.mu.RUnlock()
	if !t.open() {
		return nil, transform.ErrTargetClosed
	}
	return t.e.session.Lookup(p)
}

func (t *draftTarget) Update(fn func(document.Document) (document.Document, error)) error {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()
	if !t.open() {
		return transform.ErrTargetClosed
	}
	return t.e.session.Update(fn)
}
