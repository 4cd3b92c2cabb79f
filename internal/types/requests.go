package types

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/path"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorInstance returns the shared validator with the "fieldpath" and "section"
// tags registered.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("fieldpath", func(fl validator.FieldLevel) bool {
			_, err := path.Parse(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("section", func(fl validator.FieldLevel) bool {
			return document.IsSection(fl.Field().String())
		})
	})
	return validate
}

// CreateCVRequest creates a CV. A nil Data starts from a blank resume.
type CreateCVRequest struct {
	Name       string            `json:"name" validate:"required,min=1,max=200"`
	TemplateID string            `json:"template_id,omitempty" validate:"max=100"`
	Data       document.Document `json:"data,omitempty"`
}

// RenameCVRequest renames a CV.
type RenameCVRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// ChangeTemplateRequest selects the template a CV renders with.
type ChangeTemplateRequest struct {
	TemplateID string `json:"template_id" validate:"required,max=100"`
}

// SetFieldRequest writes Value at Path.
type SetFieldRequest struct {
	Path  string `json:"path" validate:"required,fieldpath"`
	Value any    `json:"value"`
}

// InsertRequest appends Value to the sequence at Path.
type InsertRequest struct {
	Path  string `json:"path" validate:"required,fieldpath"`
	Value any    `json:"value"`
}

// RemoveRequest deletes element Index of the sequence at Path.
type RemoveRequest struct {
	Path  string `json:"path" validate:"required,fieldpath"`
	Index int    `json:"index" validate:"min=0"`
}

// MoveRequest reorders the sequence at Path.
type MoveRequest struct {
	Path string `json:"path" validate:"required,fieldpath"`
	From int    `json:"from" validate:"min=0"`
	To   int    `json:"to" validate:"min=0"`
}

// RewriteRequest asks for an AI rewrite of the text field at Path.
type RewriteRequest struct {
	Path    string `json:"path" validate:"required,fieldpath"`
	Command string `json:"command" validate:"required,oneof=continue improve fix shorter longer simplify"`
}

// SectionRequest names a section to open.
type SectionRequest struct {
	Section string `json:"section" validate:"required,section"`
}

// Validate validates the CreateCVRequest using the validator.
func (r *CreateCVRequest) Validate() error {
	return validatorInstance().Struct(r)
}

// Validate validates the RenameCVRequest using the validator.
func (r *RenameCVRequest) Validate() error {
	return validatorInstance().Struct(r)
}

// Validate validates the ChangeTemplateRequest using the validator.
func (r *ChangeTemplateRequest) Validate() error {
	return validatorInstance().Struct(r)
}

// Validate validates the SetFieldRequest using the validator.
func (r *SetFieldRequest) Validate() error {
	return validatorInstance().Struct(r)
}

// Validate validates the InsertRequest using the validator.
func (r *InsertRequest) Validate() error {
	return validatorInstance().Struct(r)
}

// Validate validates the RemoveRequest using the validator.
func (r *RemoveRequest) Validate() error {
	return validatorInstance().Struct(r)
}

// Validate validates the MoveRequest using the validator.
func (r *MoveRequest) Validate() error {
	return validatorInstance().Struct(r)
}

// Validate validates the RewriteRequest using the validator.
func (r *RewriteRequest) Validate() error {
	return validatorInstance().Struct(r)
}

// Validate validates the SectionRequest using the validator.
func (r *SectionRequest) Validate() error {
	return validatorInstance().Struct(r)
}
