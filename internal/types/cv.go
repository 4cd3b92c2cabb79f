package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-editor/internal/document"
)

// CV is a stored resume.
type CV struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	TemplateID string            `json:"template_id,omitempty"`
	Data       document.Document `json:"data"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// CVSummary is the list view of a CV.
type CVSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	TemplateID string    `json:"template_id,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Summary returns the list view of cv.
func (cv *CV) Summary() CVSummary {
	return CVSummary{ID: cv.ID, Name: cv.Name, TemplateID: cv.TemplateID, UpdatedAt: cv.UpdatedAt}
}
