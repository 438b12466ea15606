package ports

import (
	"context"

	"datalens/domain/core"
	"datalens/domain/dataset"
)

// DatasetRepository defines the interface for dataset storage operations
type DatasetRepository interface {
	Create(ctx context.Context, ds *dataset.Dataset) error
	GetByID(ctx context.Context, id core.DatasetID) (*dataset.Dataset, error)
	List(ctx context.Context, limit, offset int) ([]*dataset.Dataset, error)
	Update(ctx context.Context, ds *dataset.Dataset) error
	Delete(ctx context.Context, id core.DatasetID) error

	ListByStatus(ctx context.Context, status dataset.DatasetStatus) ([]*dataset.Dataset, error)
	UpdateStatus(ctx context.Context, id core.DatasetID, status dataset.DatasetStatus, errorMsg string) error
}
