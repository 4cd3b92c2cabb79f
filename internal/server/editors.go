package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-editor/internal/db"
	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/editor"
	"github.com/jonathan/resume-editor/internal/transform"
)

const (
	persistTimeout = 10 * time.Second
	eventBuffer    = 32
)

// TransformEvent is a settled transform as sent to event subscribers.
type TransformEvent struct {
	transform.PendingTransform
	Error string `json:"error,omitempty"`
	Value any    `json:"value,omitempty"`
}

func newTransformEvent(pt transform.PendingTransform) TransformEvent {
	ev := TransformEvent{PendingTransform: pt}
	if pt.Err != nil {
		ev.Error = pt.Err.Error()
	}
	return ev
}

// broker fans settled transforms out to SSE subscribers. Slow subscribers miss events
// rather than block the coordinator.
type broker struct {
	mu     sync.Mutex
	subs   map[chan transform.PendingTransform]struct{}
	closed bool
}

func newBroker() *broker {
	return &broker{subs: make(map[chan transform.PendingTransform]struct{})}
}

func (b *broker) publish(pt transform.PendingTransform) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- pt:
		default:
		}
	}
}

// subscribe returns a channel of events and a function to stop receiving them. The
// channel is closed when the broker closes.
func (b *broker) subscribe() (<-chan transform.PendingTransform, func()) {
	ch := make(chan transform.PendingTransform, eventBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// cvEditor is the live editing state of one stored CV.
type cvEditor struct {
	id     uuid.UUID
	editor *editor.Editor
	events *broker
}

// openEditor returns the editor for id, loading the CV from the store on first use.
func (s *Server) openEditor(ctx context.Context, id uuid.UUID) (*cvEditor, error) {
	s.mu.Lock()
	if ed, ok := s.editors[id]; ok {
		s.mu.Unlock()
		return ed, nil
	}
	s.mu.Unlock()

	cv, err := s.store.GetCV(ctx, id)
	if err != nil {
		return nil, err
	}
	if cv == nil {
		return nil, db.ErrCVNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ed, ok := s.editors[id]; ok {
		return ed, nil
	}

	logger := s.logger.With(zap.String("cv_id", id.String()))
	events := newBroker()
	ed := &cvEditor{
		id:     id,
		events: events,
		editor: editor.New(cv.Data,
			editor.WithLogger(logger),
			editor.WithTransformOptions(
				transform.WithMaxInFlight(s.maxInFlight),
				transform.WithObserver(events.publish),
			),
			editor.WithCommitHook(s.persist(id, logger)),
		),
	}
	s.editors[id] = ed
	logger.Debug("editor opened")
	return ed, nil
}

// persist returns a commit hook that writes the canonical document back to the store.
func (s *Server) persist(id uuid.UUID, logger *zap.Logger) editor.CommitHook {
	return func(doc document.Document) {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.store.SaveCVData(ctx, id, doc); err != nil {
			logger.Error("failed to persist cv", zap.Error(err))
		}
	}
}

// lookupEditor returns the open editor for id without loading it.
func (s *Server) lookupEditor(id uuid.UUID) (*cvEditor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ed, ok := s.editors[id]
	return ed, ok
}

// closeEditor drops the editor for id, cancelling its pending rewrites and ending its
// event streams.
func (s *Server) closeEditor(id uuid.UUID) {
	s.mu.Lock()
	ed, ok := s.editors[id]
	delete(s.editors, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	ed.editor.Close()
	ed.events.close()
}

// closeEditors closes every open editor.
func (s *Server) closeEditors() {
	s.mu.Lock()
	ids := make([]uuid.UUID, 0, len(s.editors))
	for id := range s.editors {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.closeEditor(id)
	}
}
