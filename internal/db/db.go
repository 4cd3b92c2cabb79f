package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/types"
)

//go:embed migrations/001_cvs.sql
var schemaSQL string

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

var _ Store = (*DB)(nil)

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Migrate creates the cvs table if it does not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

const cvColumns = `id, name, template_id, data, created_at, updated_at`

func scanCV(row pgx.Row) (*types.CV, error) {
	var cv types.CV
	var data []byte
	if err := row.Scan(&cv.ID, &cv.Name, &cv.TemplateID, &data, &cv.CreatedAt, &cv.UpdatedAt); err != nil {
		return nil, err
	}
	doc, err := document.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("cv %s: %w", cv.ID, err)
	}
	cv.Data = doc
	return &cv, nil
}

// CreateCV stores a new CV. A nil data starts from a blank resume.
func (db *DB) CreateCV(ctx context.Context, name, templateID string, data document.Document) (*types.CV, error) {
	if data == nil {
		data = document.New()
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cv data: %w", err)
	}

	cv, err := scanCV(db.pool.QueryRow(ctx,
		`INSERT INTO cvs (name, template_id, data)
		 VALUES ($1, $2, $3)
		 RETURNING `+cvColumns,
		name, templateID, raw,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create cv: %w", err)
	}
	return cv, nil
}

// GetCV retrieves a CV by ID
func (db *DB) GetCV(ctx context.Context, id uuid.UUID) (*types.CV, error) {
	cv, err := scanCV(db.pool.QueryRow(ctx,
		`SELECT `+cvColumns+` FROM cvs WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cv: %w", err)
	}
	return cv, nil
}

// ListCVs lists CVs, most recently updated first.
func (db *DB) ListCVs(ctx context.Context) ([]types.CVSummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, template_id, updated_at FROM cvs ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cvs: %w", err)
	}
	defer rows.Close()

	cvs := []types.CVSummary{}
	for rows.Next() {
		var s types.CVSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.TemplateID, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cv: %w", err)
		}
		cvs = append(cvs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list cvs: %w", err)
	}
	return cvs, nil
}

// SaveCVData replaces the document of a CV.
func (db *DB) SaveCVData(ctx context.Context, id uuid.UUID, data document.Document) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cv data: %w", err)
	}
	return db.update(ctx, "save cv data",
		`UPDATE cvs SET data = $2, updated_at = NOW() WHERE id = $1`, id, raw)
}

// RenameCV changes the name of a CV.
func (db *DB) RenameCV(ctx context.Context, id uuid.UUID, name string) error {
	return db.update(ctx, "rename cv",
		`UPDATE cvs SET name = $2, updated_at = NOW() WHERE id = $1`, id, name)
}

// ChangeTemplate sets the template a CV is rendered with.
func (db *DB) ChangeTemplate(ctx context.Context, id uuid.UUID, templateID string) error {
	return db.update(ctx, "change template",
		`UPDATE cvs SET template_id = $2, updated_at = NOW() WHERE id = $1`, id, templateID)
}

// DeleteCV removes a CV.
func (db *DB) DeleteCV(ctx context.Context, id uuid.UUID) error {
	return db.update(ctx, "delete cv", `DELETE FROM cvs WHERE id = $1`, id)
}

func (db *DB) update(ctx context.Context, op, sql string, args ...any) error {
	result, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("failed to %s %s: %w", op, args[0], ErrCVNotFound)
	}
	return nil
}

// DuplicateCV copies a CV under the same name with CopySuffix.
func (db *DB) DuplicateCV(ctx context.Context, id uuid.UUID) (*types.CV, error) {
	cv, err := scanCV(db.pool.QueryRow(ctx,
		`INSERT INTO cvs (name, template_id, data)
		 SELECT name || $2, template_id, data FROM cvs WHERE id = $1
		 RETURNING `+cvColumns,
		id, CopySuffix,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to duplicate cv %s: %w", id, ErrCVNotFound)
		}
		return nil, fmt.Errorf("failed to duplicate cv: %w", err)
	}
	return cv, nil
}
