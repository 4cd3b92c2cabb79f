package server

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/resume-editor/internal/db"
	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/draft"
	"github.com/jonathan/resume-editor/internal/path"
	"github.com/jonathan/resume-editor/internal/schemas"
	"github.com/jonathan/resume-editor/internal/types"
)

// SessionResponse describes the section edit session of a CV.
type SessionResponse struct {
	State   string `json:"state"`
	Section string `json:"section,omitempty"`
}

// ViewResponse is what a renderer needs to draw one section.
type ViewResponse struct {
	Document document.Document `json:"document"`
	Session  SessionResponse   `json:"session"`
	Pending  []string          `json:"pending"`
}

// FieldResponse reports a field's value after an edit.
type FieldResponse struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// ValidateResponse is the result of a schema check.
type ValidateResponse struct {
	Valid  bool                 `json:"valid"`
	Errors []schemas.FieldError `json:"errors,omitempty"`
}

func (s *Server) handleListCVs(w http.ResponseWriter, r *http.Request) {
	cvs, err := s.store.ListCVs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cvs == nil {
		cvs = []types.CVSummary{}
	}
	s.jsonResponse(w, http.StatusOK, cvs)
}

func (s *Server) handleCreateCV(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCVRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	data := req.Data
	if data == nil {
		data = document.New()
	} else if err := schemas.ValidateDocument(data); err != nil {
		s.writeError(w, r, err)
		return
	}

	cv, err := s.store.CreateCV(r.Context(), req.Name, req.TemplateID, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("cv created", zap.String("cv_id", cv.ID.String()))
	s.jsonResponse(w, http.StatusCreated, cv)
}

// handleGetCV returns the stored CV. While an editor is open its canonical document is
// returned, so unsaved section drafts never show.
func (s *Server) handleGetCV(w http.ResponseWriter, r *http.Request) {
	id, err := cvID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cv, err := s.store.GetCV(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cv == nil {
		s.writeError(w, r, db.ErrCVNotFound)
		return
	}
	if ed, ok := s.lookupEditor(id); ok {
		cv.Data = ed.editor.Document()
	}
	s.jsonResponse(w, http.StatusOK, cv)
}

func (s *Server) handleDeleteCV(w http.ResponseWriter, r *http.Request) {
	id, err := cvID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.closeEditor(id)
	if err := s.store.DeleteCV(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("cv deleted", zap.String("cv_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRenameCV(w http.ResponseWriter, r *http.Request) {
	id, err := cvID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.RenameCVRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.RenameCV(r.Context(), id, req.Name); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"id": id.String(), "name": req.Name})
}

func (s *Server) handleChangeTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := cvID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.ChangeTemplateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.ChangeTemplate(r.Context(), id, req.TemplateID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"id": id.String(), "template_id": req.TemplateID})
}

func (s *Server) handleDuplicateCV(w http.ResponseWriter, r *http.Request) {
	id, err := cvID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cv, err := s.store.DuplicateCV(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, cv)
}

// handleValidateCV checks the document a renderer of ?section= would show against the
// resume schema.
func (s *Server) handleValidateCV(w http.ResponseWriter, r *http.Request) {
	ed, ok := s.editorFor(w, r)
	if !ok {
		return
	}
	err := schemas.ValidateDocument(ed.editor.View(r.URL.Query().Get("section")))
	var verr *schemas.ValidationError
	switch {
	case err == nil:
		s.jsonResponse(w, http.StatusOK, ValidateResponse{Valid: true})
	case errors.As(err, &verr):
		s.jsonResponse(w, http.StatusOK, ValidateResponse{Valid: false, Errors: verr.Errors})
	default:
		s.writeError(w, r, err)
	}
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	ed, ok := s.editorFor(w, r)
	if !ok {
		return
	}
	section := r.URL.Query().Get("section")
	if section != "" && !document.IsSection(section) {
		s.writeError(w, r, fmt.Errorf("%w: %q", draft.ErrUnknownSection, section))
		return
	}
	state, open := ed.editor.Session()
	s.jsonResponse(w, http.StatusOK, ViewResponse{
		Document: ed.editor.View(section),
		Session:  SessionResponse{State: state.String(), Section: open},
		Pending:  ed.editor.PendingPaths(),
	})
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	var req types.SetFieldRequest
	s.edit(w, r, &req, func(ed *cvEditor) (string, error) {
		p, err := path.Parse(req.Path)
		if err != nil {
			return "", err
		}
		return req.Path, ed.editor.SetField(p, req.Value)
	})
}

func (s *Server) handleInsertItem(w http.ResponseWriter, r *http.Request) {
	var req types.InsertRequest
	s.edit(w, r, &req, func(ed *cvEditor) (string, error) {
		p, err := path.Parse(req.Path)
		if err != nil {
			return "", err
		}
		return req.Path, ed.editor.Insert(p, req.Value)
	})
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	var req types.RemoveRequest
	s.edit(w, r, &req, func(ed *cvEditor) (string, error) {
		p, err := path.Parse(req.Path)
		if err != nil {
			return "", err
		}
		return req.Path, ed.editor.Remove(p, req.Index)
	})
}

func (s *Server) handleMoveItem(w http.ResponseWriter, r *http.Request) {
	var req types.MoveRequest
	s.edit(w, r, &req, func(ed *cvEditor) (string, error) {
		p, err := path.Parse(req.Path)
		if err != nil {
			return "", err
		}
		return req.Path, ed.editor.Move(p, req.From, req.To)
	})
}

// edit decodes req, runs fn against the CV's editor and responds with the value now at
// the edited path.
func (s *Server) edit(w http.ResponseWriter, r *http.Request, req interface{ Validate() error }, fn func(*cvEditor) (string, error)) {
	ed, ok := s.editorFor(w, r)
	if !ok {
		return
	}
	if err := decode(r, req); err != nil {
		s.writeError(w, r, err)
		return
	}
	edited, err := fn(ed)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p := path.MustParse(edited)
	value, err := ed.editor.Get(p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, FieldResponse{Path: edited, Value: value})
}

func (s *Server) handleStartSection(w http.ResponseWriter, r *http.Request) {
	ed, ok := s.editorFor(w, r)
	if !ok {
		return
	}
	section := r.PathValue("section")
	if err := ed.editor.StartSection(section); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, SessionResponse{State: draft.Editing.String(), Section: section})
}

func (s *Server) handleSaveSection(w http.ResponseWriter, r *http.Request) {
	s.closeSection(w, r, func(ed *cvEditor) error { return ed.editor.Save() })
}

func (s *Server) handleCancelSection(w http.ResponseWriter, r *http.Request) {
	s.closeSection(w, r, func(ed *cvEditor) error { return ed.editor.Cancel() })
}

func (s *Server) closeSection(w http.ResponseWriter, r *http.Request, fn func(*cvEditor) error) {
	ed, ok := s.editorFor(w, r)
	if !ok {
		return
	}
	section := r.PathValue("section")
	if state, open := ed.editor.Session(); state == draft.Editing && open != section {
		s.writeError(w, r, fmt.Errorf("%w: %s (editing %s)", ErrSectionMismatch, section, open))
		return
	}
	if err := fn(ed); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, SessionResponse{State: draft.Idle.String()})
}

// editorFor returns the editor of the {id} CV, writing the error response if there is
// none.
func (s *Server) editorFor(w http.ResponseWriter, r *http.Request) (*cvEditor, bool) {
	id, err := cvID(r)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	ed, err := s.openEditor(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return ed, true
}
