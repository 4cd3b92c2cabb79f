package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/types"
)

// MemoryStore is a Store kept in process memory. Documents are cloned on the way in
// and out so callers never share containers with the store.
type MemoryStore struct {
	mu  sync.RWMutex
	cvs map[uuid.UUID]*types.CV
	now func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cvs: make(map[uuid.UUID]*types.CV), now: time.Now}
}

func copyCV(cv *types.CV) *types.CV {
	out := *cv
	out.Data = document.Clone(cv.Data)
	return &out
}

// CreateCV stores a new CV. A nil data starts from a blank resume.
func (m *MemoryStore) CreateCV(_ context.Context, name, templateID string, data document.Document) (*types.CV, error) {
	if data == nil {
		data = document.New()
	}
	now := m.now()
	cv := &types.CV{
		ID:         uuid.New(),
		Name:       name,
		TemplateID: templateID,
		Data:       document.Clone(data),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cvs[cv.ID] = cv
	return copyCV(cv), nil
}

// GetCV retrieves a CV by ID
func (m *MemoryStore) GetCV(_ context.Context, id uuid.UUID) (*types.CV, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cv, ok := m.cvs[id]
	if !ok {
		return nil, nil
	}
	return copyCV(cv), nil
}

// ListCVs lists CVs, most recently updated first.
func (m *MemoryStore) ListCVs(_ context.Context) ([]types.CVSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.CVSummary, 0, len(m.cvs))
	for _, cv := range m.cvs {
		out = append(out, cv.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// SaveCVData replaces the document of a CV.
func (m *MemoryStore) SaveCVData(_ context.Context, id uuid.UUID, data document.Document) error {
	return m.modify(id, "save cv data", func(cv *types.CV) { cv.Data = document.Clone(data) })
}

// RenameCV changes the name of a CV.
func (m *MemoryStore) RenameCV(_ context.Context, id uuid.UUID, name string) error {
	return m.modify(id, "rename cv", func(cv *types.CV) { cv.Name = name })
}

// ChangeTemplate sets the template a CV is rendered with.
func (m *MemoryStore) ChangeTemplate(_ context.Context, id uuid.UUID, templateID string) error {
	return m.modify(id, "change template", func(cv *types.CV) { cv.TemplateID = templateID })
}

func (m *MemoryStore) modify(id uuid.UUID, op string, fn func(*types.CV)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cv, ok := m.cvs[id]
	if !ok {
		return fmt.Errorf("failed to %s %s: %w", op, id, ErrCVNotFound)
	}
	fn(cv)
	cv.UpdatedAt = m.now()
	return nil
}

// DuplicateCV copies a CV under the same name with CopySuffix.
func (m *MemoryStore) DuplicateCV(ctx context.Context, id uuid.UUID) (*types.CV, error) {
	m.mu.RLock()
	src, ok := m.cvs[id]
	var name, templateID string
	var data document.Document
	if ok {
		name, templateID, data = src.Name, src.TemplateID, src.Data
	}
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("failed to duplicate cv %s: %w", id, ErrCVNotFound)
	}
	return m.CreateCV(ctx, name+CopySuffix, templateID, data)
}

// DeleteCV removes a CV.
func (m *MemoryStore) DeleteCV(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cvs[id]; !ok {
		return fmt.Errorf("failed to delete cv %s: %w", id, ErrCVNotFound)
	}
	delete(m.cvs, id)
	return nil
}
