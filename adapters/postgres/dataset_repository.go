package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"datalens/domain/core"
	"datalens/domain/dataset"
	"datalens/ports"

	"github.com/jmoiron/sqlx"
)

// datasetRepository implements the DatasetRepository interface
type datasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *sqlx.DB) ports.DatasetRepository {
	return &datasetRepository{db: db}
}

// Create inserts a new dataset into the database
func (r *datasetRepository) Create(ctx context.Context, ds *dataset.Dataset) error {
	profileJSON, err := marshalProfile(ds.Profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	query := `INSERT INTO datasets (
		id, filename, file_path, file_size, mime_type,
		status, error_message, profile, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
	)`

	_, err = r.db.ExecContext(ctx, query,
		ds.ID, ds.Filename, ds.FilePath, ds.FileSize, ds.MimeType,
		ds.Status, ds.ErrorMessage, profileJSON, ds.CreatedAt, ds.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}

	return nil
}

// GetByID retrieves a dataset by its ID
func (r *datasetRepository) GetByID(ctx context.Context, id core.DatasetID) (*dataset.Dataset, error) {
	query := `SELECT
		id, filename, COALESCE(file_path, '') as file_path, COALESCE(file_size, 0) as file_size,
		COALESCE(mime_type, '') as mime_type, status, COALESCE(error_message, '') as error_message,
		profile, created_at, updated_at
	FROM datasets WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	ds, err := scanDataset(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrDatasetNotFound, id)
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return ds, nil
}

// List retrieves datasets with pagination, newest first
func (r *datasetRepository) List(ctx context.Context, limit, offset int) ([]*dataset.Dataset, error) {
	query := `SELECT
		id, filename, COALESCE(file_path, '') as file_path, COALESCE(file_size, 0) as file_size,
		COALESCE(mime_type, '') as mime_type, status, COALESCE(error_message, '') as error_message,
		profile, created_at, updated_at
	FROM datasets
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	return collectDatasets(rows)
}

// Update modifies an existing dataset
func (r *datasetRepository) Update(ctx context.Context, ds *dataset.Dataset) error {
	profileJSON, err := marshalProfile(ds.Profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	query := `UPDATE datasets SET
		filename = $2, file_path = $3, file_size = $4, mime_type = $5,
		status = $6, error_message = $7, profile = $8, updated_at = $9
	WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		ds.ID, ds.Filename, ds.FilePath, ds.FileSize, ds.MimeType,
		ds.Status, ds.ErrorMessage, profileJSON, ds.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update dataset: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrDatasetNotFound, ds.ID)
	}

	return nil
}

// Delete removes a dataset
func (r *datasetRepository) Delete(ctx context.Context, id core.DatasetID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrDatasetNotFound, id)
	}

	return nil
}

// ListByStatus retrieves all datasets in a given processing state
func (r *datasetRepository) ListByStatus(ctx context.Context, status dataset.DatasetStatus) ([]*dataset.Dataset, error) {
	query := `SELECT
		id, filename, COALESCE(file_path, '') as file_path, COALESCE(file_size, 0) as file_size,
		COALESCE(mime_type, '') as mime_type, status, COALESCE(error_message, '') as error_message,
		profile, created_at, updated_at
	FROM datasets
	WHERE status = $1
	ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets by status: %w", err)
	}
	defer rows.Close()

	return collectDatasets(rows)
}

// UpdateStatus transitions a dataset's processing state
func (r *datasetRepository) UpdateStatus(ctx context.Context, id core.DatasetID, status dataset.DatasetStatus, errorMsg string) error {
	query := `UPDATE datasets SET status = $2, error_message = $3, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status, errorMsg)
	if err != nil {
		return fmt.Errorf("failed to update dataset status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check status update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrDatasetNotFound, id)
	}

	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows scanning
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDataset(row rowScanner) (*dataset.Dataset, error) {
	var ds dataset.Dataset
	var profileJSON []byte

	err := row.Scan(
		&ds.ID, &ds.Filename, &ds.FilePath, &ds.FileSize, &ds.MimeType,
		&ds.Status, &ds.ErrorMessage, &profileJSON, &ds.CreatedAt, &ds.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(profileJSON) > 0 {
		var profile dataset.Profile
		if err := json.Unmarshal(profileJSON, &profile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
		}
		ds.Profile = &profile
	}

	return &ds, nil
}

func collectDatasets(rows *sql.Rows) ([]*dataset.Dataset, error) {
	var datasets []*dataset.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, ds)
	}
	return datasets, rows.Err()
}

func marshalProfile(p *dataset.Profile) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}
