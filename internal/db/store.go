// Package db stores CVs: PostgreSQL for the server, in memory for tests and local runs.
package db

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/types"
)

// ErrCVNotFound is returned by mutations of a CV that does not exist.
var ErrCVNotFound = errors.New("cv not found")

// CopySuffix is appended to the name of a duplicated CV.
const CopySuffix = " (Copy)"

// Store persists CVs. GetCV returns nil, nil for an unknown id.
type Store interface {
	CreateCV(ctx context.Context, name, templateID string, data document.Document) (*types.CV, error)
	GetCV(ctx context.Context, id uuid.UUID) (*types.CV, error)
	ListCVs(ctx context.Context) ([]types.CVSummary, error)
	SaveCVData(ctx context.Context, id uuid.UUID, data document.Document) error
	RenameCV(ctx context.Context, id uuid.UUID, name string) error
	ChangeTemplate(ctx context.Context, id uuid.UUID, templateID string) error
	DuplicateCV(ctx context.Context, id uuid.UUID) (*types.CV, error)
	DeleteCV(ctx context.Context, id uuid.UUID) error
}
