package editor

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/draft"
	"github.com/jonathan/resume-editor/internal/path"
	"github.com/jonathan/resume-editor/internal/transform"
)

// CommitHook receives the canonical document after it changes.
type CommitHook func(doc document.Document)

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the editor's logger. The coordinator logs through it too unless a
// transform option overrides it.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Editor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTransformOptions passes opts to the editor's transform coordinator.
func WithTransformOptions(opts ...transform.Option) Option {
	return func(e *Editor) { e.transformOpts = append(e.transformOpts, opts...) }
}

// WithCommitHook registers fn to run after every canonical change.
func WithCommitHook(fn CommitHook) Option {
	return func(e *Editor) { e.hooks = append(e.hooks, fn) }
}

// Editor owns one canonical document, at most one open section draft, and the pending
// rewrites of its fields. It is safe for concurrent use.
//
// While a section is being edited, every edit and rewrite goes into the draft. Edits
// are not restricted to the open section. Readers of Document never see draft edits
// until Save.
//
// Commit hooks run with no editor or coordinator lock held, one call at a time, and
// the last call always sees the newest canonical document. Changes made while a hook
// runs are coalesced into the next call. Hooks must not edit the document.
type Editor struct {
	mu            sync.RWMutex
	doc           document.Document
	session       *draft.Session
	draftTarget   *draftTarget
	canonical     *canonicalTarget
	closed        bool
	coord         *transform.Coordinator
	transformOpts []transform.Option
	logger        *zap.Logger

	commitMu  sync.Mutex
	hooks     []CommitHook
	committed document.Document // last document the hooks saw, starting with the loaded one
	running   bool              // a caller is running the hooks
	dirty     bool              // the document may have changed since the hooks last ran
	forced    bool              // an edit asked for a hook call even if the document is unchanged
}

// New returns an editor over doc. A nil doc starts from a blank resume.
func New(doc document.Document, opts ...Option) *Editor {
	if doc == nil {
		doc = document.New()
	}
	e := &Editor{
		doc:       doc,
		committed: doc,
		session:   draft.NewSession(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.canonical = &canonicalTarget{e: e}
	coordOpts := append([]transform.Option{
		transform.WithLogger(e.logger),
		transform.WithObserver(e.settled),
	}, e.transformOpts...)
	e.coord = transform.New(coordOpts...)
	return e
}

// Document returns the canonical document.
func (e *Editor) Document() document.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc
}

// View returns what a renderer of sectionID should display: the open draft when that
// section is being edited, the canonical document otherwise.
func (e *Editor) View(sectionID string) document.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session.EffectiveView(e.doc, sectionID)
}

// Live returns the document edits and rewrites currently go to: the open draft while a
// section is being edited, the canonical document otherwise.
func (e *Editor) Live() document.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.session.State() == draft.Editing {
		return e.session.Draft()
	}
	return e.doc
}

// Session reports the session state and the open section, if any.
func (e *Editor) Session() (draft.State, string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session.State(), e.session.SectionID()
}

// Get resolves p against the live scope: the draft while editing, else canonical.
func (e *Editor) Get(p path.Path) (any, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.session.State() == draft.Editing {
		return e.session.Lookup(p)
	}
	return path.Resolve(e.doc, p)
}

// SetField writes value at p.
func (e *Editor) SetField(p path.Path, value any) error {
	return e.Apply(draft.Set{Path: p, Value: value})
}

// Insert appends value to the sequence at p.
func (e *Editor) Insert(p path.Path, value any) error {
	return e.Apply(draft.Insert{Path: p, Value: value})
}

// Remove deletes element index of the sequence at p.
func (e *Editor) Remove(p path.Path, index int) error {
	return e.Apply(draft.Remove{Path: p, Index: index})
}

// Move reorders the sequence at p.
func (e *Editor) Move(p path.Path, from, to int) error {
	return e.Apply(draft.Move{Path: p, From: from, To: to})
}

// Apply runs op against the live scope. Pending rewrites at or below the op's target
// are cancelled along with the edit, except for Insert, which never shifts existing
// elements: a rewrite requested before the edit must not land on the edited or
// re-indexed value. No rewrite can be requested or written between the edit and
// those cancellations.
func (e *Editor) Apply(op draft.Op) error {
	_, insert := op.(draft.Insert)
	var section string
	n, err := e.coord.Edit(op.Target(), func() (transform.Target, error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return nil, ErrClosed
		}
		scope := e.scope()
		if e.session.State() == draft.Editing {
			if err := e.session.Edit(op); err != nil {
				return nil, err
			}
			section = e.session.SectionID()
		} else {
			next, err := op.Apply(e.doc)
			if err != nil {
				return nil, err
			}
			e.doc = next
		}
		if insert {
			return nil, nil
		}
		return scope, nil
	})
	if err != nil {
		return err
	}
	if n > 0 {
		e.logger.Debug("edit cancelled pending rewrites",
			zap.String("path", op.Target().String()),
			zap.Int("count", n),
		)
	}

	if section != "" {
		e.logger.Debug("draft edited",
			zap.String("section", section),
			zap.String("path", op.Target().String()),
		)
		return nil
	}
	e.logger.Debug("document edited", zap.String("path", op.Target().String()))
	e.commit()
	return nil
}

// StartSection opens a draft of the canonical document for sectionID.
func (e *Editor) StartSection(sectionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if err := e.session.Start(e.doc, sectionID); err != nil {
		return err
	}
	e.draftTarget = &draftTarget{e: e, generation: e.session.Generation()}
	e.logger.Info("section edit started", zap.String("section", sectionID))
	return nil
}

// Save commits the open draft as the canonical document. Rewrites still pending against
// the draft are cancelled.
func (e *Editor) Save() error {
	e.mu.Lock()
	section := e.session.SectionID()
	saved, err := e.session.Save()
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.doc = saved
	target := e.draftTarget
	e.draftTarget = nil
	e.mu.Unlock()

	n := e.coord.Detach(target)
	e.logger.Info("section saved",
		zap.String("section", section),
		zap.Int("cancelled_rewrites", n),
	)
	e.commit()
	return nil
}

// Cancel discards the open draft. The canonical document is left as it is.
func (e *Editor) Cancel() error {
	e.mu.Lock()
	section := e.session.SectionID()
	if _, err := e.session.Cancel(); err != nil {
		e.mu.Unlock()
		return err
	}
	target := e.draftTarget
	e.draftTarget = nil
	e.mu.Unlock()

	n := e.coord.Detach(target)
	e.logger.Info("section edit cancelled",
		zap.String("section", section),
		zap.Int("cancelled_rewrites", n),
	)
	return nil
}

// Rewrite requests an asynchronous rewrite of the field at p in the live scope and
// returns without waiting. A newer rewrite of the same field supersedes this one; a
// rewrite requested inside a section edit is cancelled when the section closes.
func (e *Editor) Rewrite(ctx context.Context, p path.Path, fn transform.Func) (*transform.Handle, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, ErrClosed
	}
	target := e.scope()
	e.mu.RUnlock()

	return e.coord.Request(ctx, p, target, fn)
}

// Pending reports whether a rewrite of p is in flight.
func (e *Editor) Pending(p path.Path) bool {
	return e.coord.Pending(p)
}

// Transform returns the most recent rewrite request for p.
func (e *Editor) Transform(p path.Path) (transform.PendingTransform, bool) {
	return e.coord.Lookup(p)
}

// PendingPaths lists fields with a rewrite in flight.
func (e *Editor) PendingPaths() []string {
	return e.coord.PendingPaths()
}

// CancelRewrite logically cancels the pending rewrite of p.
func (e *Editor) CancelRewrite(p path.Path) bool {
	return e.coord.Cancel(p)
}

// Wait blocks until every started rewrite function has returned.
func (e *Editor) Wait() {
	e.coord.Wait()
}

// Close drops any open draft and forgets every pending rewrite. Later edits fail with
// ErrClosed.
func (e *Editor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.session.Reset()
	e.draftTarget = nil
	e.mu.Unlock()

	n := e.coord.Reset()
	e.logger.Debug("editor closed", zap.Int("cancelled_rewrites", n))
}

// scope returns the target edits currently go to. Caller holds e.mu.
func (e *Editor) scope() transform.Target {
	if e.draftTarget != nil {
		return e.draftTarget
	}
	return e.canonical
}

// settled commits rewrites that landed in the canonical document. Rewrites applied to
// a draft leave the canonical document as it was and are skipped.
func (e *Editor) settled(pt transform.PendingTransform) {
	if pt.Status == transform.StatusApplied {
		e.runHooks(false)
	}
}

// commit runs the hooks with the latest canonical document.
func (e *Editor) commit() {
	e.runHooks(true)
}

// runHooks passes the canonical document to every hook. Unless always is set, a
// document the hooks have already seen is skipped. One caller at a time runs the hooks;
// a caller arriving while they run leaves its change to that caller, which loops until
// the hooks have seen the newest document. Edits never wait on a slow hook.
func (e *Editor) runHooks(always bool) {
	if len(e.hooks) == 0 {
		return
	}
	e.commitMu.Lock()
	defer e.commitMu.Unlock()
	e.dirty = true
	e.forced = e.forced || always
	if e.running {
		return
	}
	e.running = true
	for e.dirty {
		force := e.forced
		e.dirty, e.forced = false, false
		doc := e.Document()
		if !force && document.SameNode(doc, e.committed) {
			continue
		}
		e.committed = doc
		e.commitMu.Unlock()
		for _, fn := range e.hooks {
			fn(doc)
		}
		e.commitMu.Lock()
	}
	e.running = false
}
