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

// versionRepository implements the VersionRepository interface
type versionRepository struct {
	db *sqlx.DB
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(db *sqlx.DB) ports.VersionRepository {
	return &versionRepository{db: db}
}

// Create inserts a new version record
func (r *versionRepository) Create(ctx context.Context, v *dataset.Version) error {
	typesJSON, err := json.Marshal(v.ColumnTypes)
	if err != nil {
		return fmt.Errorf("failed to marshal column types: %w", err)
	}
	paramsJSON, err := json.Marshal(v.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	query := `INSERT INTO dataset_versions (
		id, dataset_id, parent_id, label, params, file_path,
		column_types, analysis_result, created_at
	) VALUES (
		$1, $2, NULLIF($3, ''), $4, $5, $6, $7, NULLIF($8, ''), $9
	)`

	_, err = r.db.ExecContext(ctx, query,
		v.ID, v.DatasetID, v.ParentID, v.Label, paramsJSON, v.FilePath,
		typesJSON, v.AnalysisResult, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create version: %w", err)
	}

	return nil
}

// GetByID retrieves a version by its ID
func (r *versionRepository) GetByID(ctx context.Context, id core.VersionID) (*dataset.Version, error) {
	query := versionSelect + ` WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	v, err := scanVersion(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrVersionNotFound, id)
		}
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// GetRoot retrieves the "original" version of a dataset, whose column type
// map is authoritative for reloads.
func (r *versionRepository) GetRoot(ctx context.Context, datasetID core.DatasetID) (*dataset.Version, error) {
	query := versionSelect + ` WHERE dataset_id = $1 AND parent_id IS NULL`

	row := r.db.QueryRowContext(ctx, query, datasetID)
	v, err := scanVersion(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: root for dataset %s", core.ErrVersionNotFound, datasetID)
		}
		return nil, fmt.Errorf("failed to get root version: %w", err)
	}
	return v, nil
}

// ListByDataset retrieves a dataset's full version history, oldest first
func (r *versionRepository) ListByDataset(ctx context.Context, datasetID core.DatasetID) ([]*dataset.Version, error) {
	query := versionSelect + ` WHERE dataset_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()

	var versions []*dataset.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Delete removes a version record
func (r *versionRepository) Delete(ctx context.Context, id core.VersionID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM dataset_versions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete version: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrVersionNotFound, id)
	}

	return nil
}

// UpdateColumnTypes replaces the persisted column -> type map, e.g. after a
// user type override.
func (r *versionRepository) UpdateColumnTypes(ctx context.Context, id core.VersionID, types map[string]dataset.ColumnType) error {
	typesJSON, err := json.Marshal(types)
	if err != nil {
		return fmt.Errorf("failed to marshal column types: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE dataset_versions SET column_types = $2 WHERE id = $1`, id, typesJSON)
	if err != nil {
		return fmt.Errorf("failed to update column types: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrVersionNotFound, id)
	}

	return nil
}

// SetAnalysisResult stores the remote pre-analysis payload for pollers
func (r *versionRepository) SetAnalysisResult(ctx context.Context, id core.VersionID, analysisResult string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE dataset_versions SET analysis_result = $2 WHERE id = $1`, id, analysisResult)
	if err != nil {
		return fmt.Errorf("failed to set analysis result: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrVersionNotFound, id)
	}

	return nil
}

// GetAnalysisResult reads the analysis payload; empty means not yet ready
func (r *versionRepository) GetAnalysisResult(ctx context.Context, id core.VersionID) (string, error) {
	var analysisResult string
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(analysis_result, '') FROM dataset_versions WHERE id = $1`, id).
		Scan(&analysisResult)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("%w: %s", core.ErrVersionNotFound, id)
		}
		return "", fmt.Errorf("failed to get analysis result: %w", err)
	}
	return analysisResult, nil
}

const versionSelect = `SELECT
	id, dataset_id, COALESCE(parent_id, '') as parent_id, label, params, file_path,
	column_types, COALESCE(analysis_result, '') as analysis_result, created_at
FROM dataset_versions`

func scanVersion(row rowScanner) (*dataset.Version, error) {
	var v dataset.Version
	var paramsJSON, typesJSON []byte

	err := row.Scan(
		&v.ID, &v.DatasetID, &v.ParentID, &v.Label, &paramsJSON, &v.FilePath,
		&typesJSON, &v.AnalysisResult, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &v.Params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal params: %w", err)
		}
	}
	if len(typesJSON) > 0 {
		if err := json.Unmarshal(typesJSON, &v.ColumnTypes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal column types: %w", err)
		}
	}

	return &v, nil
}
