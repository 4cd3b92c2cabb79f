// Package server provides the HTTP REST API for the resume editor.
package server

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-editor/internal/assist"
	"github.com/jonathan/resume-editor/internal/db"
	"github.com/jonathan/resume-editor/internal/draft"
	"github.com/jonathan/resume-editor/internal/editor"
	"github.com/jonathan/resume-editor/internal/path"
	"github.com/jonathan/resume-editor/internal/schemas"
	"github.com/jonathan/resume-editor/internal/transform"
	"github.com/jonathan/resume-editor/internal/tree"
)

var (
	// ErrRewriterUnavailable is returned for transform requests when no model is configured.
	ErrRewriterUnavailable = errors.New("ai rewriting is not configured")

	// ErrSectionMismatch is returned when saving or cancelling a section other than the
	// one being edited.
	ErrSectionMismatch = errors.New("section is not being edited")

	// ErrBadRequest wraps request bodies and parameters that cannot be read.
	ErrBadRequest = errors.New("bad request")
)

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBadRequest),
		errors.As(err, &verrs),
		errors.Is(err, path.ErrMalformedPath),
		errors.Is(err, tree.ErrPathNotAddressable),
		errors.Is(err, tree.ErrIndexOutOfRange),
		errors.Is(err, draft.ErrUnknownSection),
		errors.Is(err, schemas.ErrInvalidDocument),
		errors.Is(err, assist.ErrUnknownCommand),
		errors.Is(err, assist.ErrEmptyText),
		errors.Is(err, assist.ErrNotText):
		return http.StatusBadRequest
	case errors.Is(err, path.ErrNotFound),
		errors.Is(err, db.ErrCVNotFound):
		return http.StatusNotFound
	case errors.Is(err, draft.ErrSessionAlreadyOpen),
		errors.Is(err, draft.ErrNoActiveSession),
		errors.Is(err, ErrSectionMismatch),
		errors.Is(err, editor.ErrClosed),
		errors.Is(err, transform.ErrTargetClosed):
		return http.StatusConflict
	case errors.Is(err, transform.ErrTransformFailed):
		return http.StatusBadGateway
	case errors.Is(err, ErrRewriterUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
