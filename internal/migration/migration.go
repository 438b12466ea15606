package migration

import (
	"context"

	"datalens/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createDatasetsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create datasets table")
	}

	if err := r.createVersionsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create dataset_versions table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createDatasetsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS datasets (
			id UUID PRIMARY KEY,
			filename VARCHAR(512) NOT NULL,
			file_path TEXT,
			file_size BIGINT,
			mime_type VARCHAR(255),
			status VARCHAR(50) NOT NULL DEFAULT 'uploaded',
			error_message TEXT,
			profile JSONB,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createVersionsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS dataset_versions (
			id UUID PRIMARY KEY,
			dataset_id UUID NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
			parent_id UUID REFERENCES dataset_versions(id) ON DELETE SET NULL,
			label VARCHAR(100) NOT NULL,
			params JSONB,
			file_path TEXT NOT NULL,
			column_types JSONB,
			analysis_result TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_datasets_status ON datasets(status)`,
		`CREATE INDEX IF NOT EXISTS idx_datasets_created_at ON datasets(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_versions_dataset ON dataset_versions(dataset_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_versions_root ON dataset_versions(dataset_id) WHERE parent_id IS NULL`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
