package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resume-editor/internal/assist"
	"github.com/jonathan/resume-editor/internal/path"
	"github.com/jonathan/resume-editor/internal/transform"
	"github.com/jonathan/resume-editor/internal/types"
)

const keepAliveInterval = 15 * time.Second

// handleRequestTransform starts an AI rewrite of one text field and returns 202 with the
// pending request. The result arrives on the events stream and can be polled with
// GET /cvs/{id}/transforms?path=.
func (s *Server) handleRequestTransform(w http.ResponseWriter, r *http.Request) {
	ed, ok := s.editorFor(w, r)
	if !ok {
		return
	}
	var req types.RewriteRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.rewriter == nil {
		s.writeError(w, r, ErrRewriterUnavailable)
		return
	}
	cmd, err := assist.ParseCommand(req.Command)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := path.Parse(req.Path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// the rewrite outlives the request; its context comes from the document it rewrites
	ctx, cancel := context.WithTimeout(context.Background(), s.transformTimeout)
	h, err := ed.editor.Rewrite(ctx, p, s.rewriter.Func(cmd, ed.editor.Live()))
	if err != nil {
		cancel()
		s.writeError(w, r, err)
		return
	}
	go func() {
		defer cancel()
		<-h.Done()
	}()

	s.logger.Info("transform requested",
		zap.String("cv_id", ed.id.String()),
		zap.String("path", req.Path),
		zap.String("command", string(cmd)),
		zap.String("request_id", h.ID().String()),
	)
	s.jsonResponse(w, http.StatusAccepted, newTransformEvent(h.Snapshot()))
}

// handleGetTransform returns the latest request for ?path=, or the paths with a rewrite
// in flight when path is omitted.
func (s *Server) handleGetTransform(w http.ResponseWriter, r *http.Request) {
	ed, ok := s.editorFor(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("path")
	if raw == "" {
		s.jsonResponse(w, http.StatusOK, map[string][]string{"pending": ed.editor.PendingPaths()})
		return
	}
	p, err := path.Parse(raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pt, found := ed.editor.Transform(p)
	if !found {
		s.writeError(w, r, fmt.Errorf("%w: no transform for %q", path.ErrNotFound, raw))
		return
	}
	s.jsonResponse(w, http.StatusOK, s.withValue(ed, newTransformEvent(pt)))
}

// handleCancelTransform logically cancels the pending rewrite of ?path=.
func (s *Server) handleCancelTransform(w http.ResponseWriter, r *http.Request) {
	ed, ok := s.editorFor(w, r)
	if !ok {
		return
	}
	p, err := path.Parse(r.URL.Query().Get("path"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"cancelled": ed.editor.CancelRewrite(p)})
}

// handleEvents streams settled transforms of one CV as server-sent events until the
// client disconnects or the CV's editor closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ed, ok := s.editorFor(w, r)
	if !ok {
		return
	}
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	events, unsubscribe := ed.events.subscribe()
	defer unsubscribe()

	if err := sse.WriteEvent("ready", map[string]any{"cv_id": ed.id.String(), "pending": ed.editor.PendingPaths()}); err != nil {
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := sse.WriteKeepAlive(); err != nil {
				return
			}
		case pt, open := <-events:
			if !open {
				sse.WriteClosed(ed.id.String())
				return
			}
			if err := sse.WriteEvent("transform", s.withValue(ed, newTransformEvent(pt))); err != nil {
				s.logger.Debug("event stream closed", zap.Error(err))
				return
			}
		}
	}
}

// withValue attaches the field's current value to an applied transform.
func (s *Server) withValue(ed *cvEditor, ev TransformEvent) TransformEvent {
	if ev.Status != transform.StatusApplied {
		return ev
	}
	p, err := path.Parse(ev.FieldPath)
	if err != nil {
		return ev
	}
	if value, err := ed.editor.Get(p); err == nil {
		ev.Value = value
	}
	return ev
}
