package ports

import (
	"context"

	"datalens/domain/core"
	"datalens/domain/dataset"
)

// VersionRepository persists a dataset's preprocessing history. The root
// version's column type map is the source of truth consulted before any
// re-inference on reload.
type VersionRepository interface {
	Create(ctx context.Context, v *dataset.Version) error
	GetByID(ctx context.Context, id core.VersionID) (*dataset.Version, error)
	GetRoot(ctx context.Context, datasetID core.DatasetID) (*dataset.Version, error)
	ListByDataset(ctx context.Context, datasetID core.DatasetID) ([]*dataset.Version, error)
	Delete(ctx context.Context, id core.VersionID) error

	UpdateColumnTypes(ctx context.Context, id core.VersionID, types map[string]dataset.ColumnType) error
	// SetAnalysisResult stores the remote pre-analysis payload once it
	// lands; GetAnalysisResult is what pollers read until non-empty.
	SetAnalysisResult(ctx context.Context, id core.VersionID, result string) error
	GetAnalysisResult(ctx context.Context, id core.VersionID) (string, error)
}
