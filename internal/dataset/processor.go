// Package dataset orchestrates the dataset lifecycle: upload intake and
// validation, blob storage, profiling runs, version history and user type
// overrides. Profiling itself lives in internal/profile; this package wires
// it to the repositories and the blob store.
package dataset

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"datalens/adapters/excel"
	"datalens/domain/core"
	"datalens/domain/dataset"
	"datalens/internal/errors"
	"datalens/internal/profile"
	"datalens/ports"
)

const (
	storageReadRetries = 3
	storageRetryDelay  = 500 * time.Millisecond
)

// ProgressSink receives profiling progress for live streaming. Implemented
// by the SSE hub; a nil sink is valid and silently drops events.
type ProgressSink interface {
	PublishProgress(datasetID string, state string, percent int)
}

// Processor handles dataset upload, profiling and version bookkeeping
type Processor struct {
	repo        ports.DatasetRepository
	versions    ports.VersionRepository
	storage     ports.FileStorage
	pool        *profile.Pool
	profileCfg  profile.Config
	maxFileSize int64
	sink        ProgressSink
}

// NewProcessor creates a dataset processor
func NewProcessor(
	repo ports.DatasetRepository,
	versions ports.VersionRepository,
	storage ports.FileStorage,
	pool *profile.Pool,
	profileCfg profile.Config,
	maxFileSize int64,
	sink ProgressSink,
) *Processor {
	return &Processor{
		repo:        repo,
		versions:    versions,
		storage:     storage,
		pool:        pool,
		profileCfg:  profileCfg,
		maxFileSize: maxFileSize,
		sink:        sink,
	}
}

// Upload validates and stores an uploaded file, creates the dataset record
// and kicks off profiling in the background. The returned dataset is in the
// uploaded state; callers follow progress over SSE or by polling.
func (p *Processor) Upload(ctx context.Context, upload *dataset.Upload) (*dataset.Dataset, error) {
	if err := p.validateUpload(upload); err != nil {
		return nil, err
	}

	ds := dataset.NewDataset(upload.Filename)
	ds.MimeType = upload.MimeType
	ds.FileSize = upload.Size

	filePath, err := p.storage.Store(ctx, upload.File, upload.Filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store uploaded file")
	}
	ds.FilePath = filePath

	if err := p.repo.Create(ctx, ds); err != nil {
		// The blob is orphaned if the record fails; remove it.
		if delErr := p.storage.Delete(ctx, filePath); delErr != nil {
			log.Printf("[Processor] Failed to clean up blob %s: %v", filePath, delErr)
		}
		return nil, err
	}

	log.Printf("[Processor] Dataset %s uploaded (%s, %d bytes)", ds.ID, ds.Filename, ds.FileSize)

	go p.profileAsync(ds.ID)

	return ds, nil
}

func (p *Processor) validateUpload(upload *dataset.Upload) error {
	if upload == nil || upload.File == nil {
		return errors.InvalidInput("no file provided")
	}
	if upload.Size == 0 {
		return fmt.Errorf("%w: %s", core.ErrEmptyFile, upload.Filename)
	}
	if p.maxFileSize > 0 && upload.Size > p.maxFileSize {
		return errors.FileTooLarge(fmt.Sprintf("file is %d bytes, limit is %d", upload.Size, p.maxFileSize))
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if ext != ".csv" && ext != ".xlsx" {
		return fmt.Errorf("%w: %s", core.ErrUnsupportedType, ext)
	}
	return nil
}

// profileAsync runs the initial profiling pass for a fresh upload. Failures
// move the dataset to the failed state with the error message attached.
func (p *Processor) profileAsync(id core.DatasetID) {
	ctx := context.Background()

	ds, err := p.repo.GetByID(ctx, id)
	if err != nil {
		log.Printf("[Processor] Dataset %s vanished before profiling: %v", id, err)
		return
	}

	if err := p.repo.UpdateStatus(ctx, id, dataset.StatusProcessing, ""); err != nil {
		log.Printf("[Processor] Failed to mark dataset %s processing: %v", id, err)
		return
	}

	prof, err := p.runPipeline(ctx, ds, nil)
	if err != nil {
		log.Printf("[Processor] Profiling failed for dataset %s: %v", id, err)
		if updErr := p.repo.UpdateStatus(ctx, id, dataset.StatusFailed, err.Error()); updErr != nil {
			log.Printf("[Processor] Failed to mark dataset %s failed: %v", id, updErr)
		}
		return
	}

	ds.Profile = prof
	ds.Status = dataset.StatusReady
	ds.ErrorMessage = ""
	ds.UpdatedAt = core.Now()
	if err := p.repo.Update(ctx, ds); err != nil {
		log.Printf("[Processor] Failed to persist profile for dataset %s: %v", id, err)
		return
	}

	root := dataset.NewRootVersion(ds.ID, ds.FilePath, prof.ColumnTypes())
	if err := p.versions.Create(ctx, root); err != nil {
		log.Printf("[Processor] Failed to create root version for dataset %s: %v", id, err)
	}

	log.Printf("[Processor] Dataset %s profiled: %d rows, %d columns", id, prof.RowCount, len(prof.Columns))
}

// Reprofile re-runs profiling for an existing dataset using the root
// version's persisted column type map, so user overrides survive reloads.
// The stored dataset is only touched after the new profile succeeds.
func (p *Processor) Reprofile(ctx context.Context, id core.DatasetID) (*dataset.Dataset, error) {
	ds, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var knownTypes map[string]dataset.ColumnType
	if root, err := p.versions.GetRoot(ctx, id); err == nil {
		knownTypes = root.ColumnTypes
	}

	prof, err := p.runPipeline(ctx, ds, knownTypes)
	if err != nil {
		return nil, err
	}

	ds.Profile = prof
	ds.Status = dataset.StatusReady
	ds.ErrorMessage = ""
	ds.UpdatedAt = core.Now()
	if err := p.repo.Update(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (p *Processor) runPipeline(ctx context.Context, ds *dataset.Dataset, knownTypes map[string]dataset.ColumnType) (*dataset.Profile, error) {
	text, err := p.readFileText(ctx, ds.FilePath, ds.Filename)
	if err != nil {
		return nil, err
	}

	pipeline := profile.NewPipeline(p.profileCfg, p.pool, func(state profile.State, percent int) {
		if p.sink != nil {
			p.sink.PublishProgress(string(ds.ID), string(state), percent)
		}
	})
	return pipeline.RunWithTypes(ctx, text, knownTypes)
}

// readFileText loads a stored file as CSV text, converting xlsx workbooks.
// Storage reads are retried a few times before giving up.
func (p *Processor) readFileText(ctx context.Context, filePath, filename string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < storageReadRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[Processor] Retrying read of %s (attempt %d/%d)", filePath, attempt+1, storageReadRetries)
			select {
			case <-time.After(storageRetryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := p.readOnce(ctx, filePath, filename)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("failed to read stored file after %d attempts: %w", storageReadRetries, lastErr)
}

func (p *Processor) readOnce(ctx context.Context, filePath, filename string) (string, error) {
	reader, err := p.storage.GetReader(ctx, filePath)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	if excel.IsExcelFilename(filename) {
		return excel.ConvertToCSV(reader)
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Get retrieves a dataset by ID
func (p *Processor) Get(ctx context.Context, id core.DatasetID) (*dataset.Dataset, error) {
	return p.repo.GetByID(ctx, id)
}

// List retrieves datasets with pagination
func (p *Processor) List(ctx context.Context, limit, offset int) ([]*dataset.Dataset, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return p.repo.List(ctx, limit, offset)
}

// Delete removes a dataset, its versions and their stored files
func (p *Processor) Delete(ctx context.Context, id core.DatasetID) error {
	ds, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	versions, err := p.versions.ListByDataset(ctx, id)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if v.FilePath != ds.FilePath {
			if err := p.storage.Delete(ctx, v.FilePath); err != nil {
				log.Printf("[Processor] Failed to delete version blob %s: %v", v.FilePath, err)
			}
		}
		if err := p.versions.Delete(ctx, v.ID); err != nil {
			return err
		}
	}

	if ds.FilePath != "" {
		if err := p.storage.Delete(ctx, ds.FilePath); err != nil {
			log.Printf("[Processor] Failed to delete blob %s: %v", ds.FilePath, err)
		}
	}

	return p.repo.Delete(ctx, id)
}

// Versions retrieves a dataset's preprocessing history, oldest first
func (p *Processor) Versions(ctx context.Context, id core.DatasetID) ([]*dataset.Version, error) {
	if _, err := p.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return p.versions.ListByDataset(ctx, id)
}
