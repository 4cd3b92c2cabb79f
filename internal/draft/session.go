package draft

import (
	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/path"
)

// State is the lifecycle state of a Session.
type State int

const (
	// Idle means no section is being edited.
	Idle State = iota
	// Editing means exactly one section has an open draft.
	Editing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	default:
		return "unknown"
	}
}

// Session edits one section of a document in a scratch copy and commits or discards it
// as a unit. At most one section is open at a time.
//
// The draft is a full, independently addressable copy of the document taken when the
// session opens, so readers of the canonical document never observe partial edits.
// Save does not reconcile with changes made to the canonical document while the session
// was open: the draft replaces it (last writer wins).
//
// A Session is not safe for concurrent use.
type Session struct {
	state      State
	sectionID  string
	draft      document.Document
	base       document.Document
	generation uint64
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{}
}

// Start opens a draft of doc for sectionID.
func (s *Session) Start(doc document.Document, sectionID string) error {
	if s.state == Editing {
		return &StateError{Op: "start", SectionID: s.sectionID, Err: ErrSessionAlreadyOpen}
	}
	if !document.IsSection(sectionID) {
		return &StateError{Op: "start", Err: ErrUnknownSection}
	}

	s.state = Editing
	s.sectionID = sectionID
	s.base = doc
	s.draft = document.Clone(doc)
	s.generation++
	return nil
}

// Edit applies op to the draft. On failure the draft is left as it was.
func (s *Session) Edit(op Op) error {
	if s.state != Editing {
		return &StateError{Op: "edit", Err: ErrNoActiveSession}
	}
	next, err := op.Apply(s.draft)
	if err != nil {
		return err
	}
	s.draft = next
	return nil
}

// Update replaces the draft with fn(draft). It is the functional form of Edit.
func (s *Session) Update(fn func(document.Document) (document.Document, error)) error {
	if s.state != Editing {
		return &StateError{Op: "update", Err: ErrNoActiveSession}
	}
	next, err := fn(s.draft)
	if err != nil {
		return err
	}
	s.draft = next
	return nil
}

// Save closes the session and returns the draft as the new canonical document.
func (s *Session) Save() (document.Document, error) {
	if s.state != Editing {
		return nil, &StateError{Op: "save", Err: ErrNoActiveSession}
	}
	committed := s.draft
	s.close()
	return committed, nil
}

// Cancel closes the session, discards the draft, and returns the document it was opened on.
func (s *Session) Cancel() (document.Document, error) {
	if s.state != Editing {
		return nil, &StateError{Op: "cancel", Err: ErrNoActiveSession}
	}
	base := s.base
	s.close()
	return base, nil
}

// Reset drops any open draft without reporting it. Used when the document is closed.
func (s *Session) Reset() {
	s.close()
}

func (s *Session) close() {
	s.state = Idle
	s.sectionID = ""
	s.draft = nil
	s.base = nil
}

// EffectiveView returns what a renderer of sectionID should display: the draft while
// that section is being edited, doc otherwise.
func (s *Session) EffectiveView(doc document.Document, sectionID string) document.Document {
	if s.state == Editing && s.sectionID == sectionID {
		return s.draft
	}
	return doc
}

// Lookup resolves p against the draft.
func (s *Session) Lookup(p path.Path) (any, error) {
	if s.state != Editing {
		return nil, &StateError{Op: "lookup", Err: ErrNoActiveSession}
	}
	return path.Resolve(s.draft, p)
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// SectionID returns the open section, or "" when idle.
func (s *Session) SectionID() string { return s.sectionID }

// Draft returns the current draft, or nil when idle.
func (s *Session) Draft() document.Document { return s.draft }

// Base returns the document the open session started from, or nil when idle.
func (s *Session) Base() document.Document { return s.base }

// Generation counts the sessions opened so far. It identifies the open session.
func (s *Session) Generation() uint64 { return s.generation }
