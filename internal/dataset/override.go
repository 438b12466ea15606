package dataset

import (
	"context"
	"fmt"

	"datalens/domain/core"
	"datalens/domain/dataset"
	"datalens/internal/profile"
)

// OverrideType reclassifies one column of a dataset's profile and recomputes
// that column's statistics; everything else in the profile is untouched. The
// new type is persisted on the root version so later reloads keep it.
func (p *Processor) OverrideType(ctx context.Context, id core.DatasetID, columnKey core.ColumnKey, newType dataset.ColumnType) (*dataset.Dataset, error) {
	if !validColumnType(newType) {
		return nil, fmt.Errorf("%w: unknown column type %q", core.ErrTypeMismatch, newType)
	}

	ds, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ds.Profile == nil {
		return nil, fmt.Errorf("%w: dataset %s has no profile", core.ErrInsufficientData, id)
	}

	// Sample rows are not persisted with the profile, so rebuild them from
	// the stored file before recomputing the column.
	if len(ds.Profile.SampleRows) == 0 {
		if err := p.restoreSampleRows(ctx, ds); err != nil {
			return nil, err
		}
	}

	if err := profile.OverrideColumnType(ds.Profile, columnKey.String(), newType); err != nil {
		return nil, err
	}

	ds.UpdatedAt = core.Now()
	if err := p.repo.Update(ctx, ds); err != nil {
		return nil, err
	}

	if root, err := p.versions.GetRoot(ctx, id); err == nil {
		types := root.ColumnTypes
		if types == nil {
			types = make(map[string]dataset.ColumnType)
		}
		types[columnKey.String()] = newType
		if err := p.versions.UpdateColumnTypes(ctx, root.ID, types); err != nil {
			return nil, err
		}
	}

	return ds, nil
}

// restoreSampleRows reparses the stored file into the profile's sample rows.
// The parse is deterministic, so keys and row sampling line up with the
// profile that was computed from the same file.
func (p *Processor) restoreSampleRows(ctx context.Context, ds *dataset.Dataset) error {
	text, err := p.readFileText(ctx, ds.FilePath, ds.Filename)
	if err != nil {
		return err
	}

	sep := profile.DetectSeparator(text)
	parsed := profile.ParseRows(text, sep, len(ds.Profile.ColumnKeys), p.profileCfg.RowSampleCap)
	if len(parsed.Rows) == 0 {
		return fmt.Errorf("%w: no rows in stored file", core.ErrEmptyFile)
	}

	ds.Profile.SampleRows = parsed.Rows
	return nil
}

func validColumnType(t dataset.ColumnType) bool {
	switch t {
	case dataset.TypeQuantitative, dataset.TypeQualitative,
		dataset.TypeNumeric, dataset.TypeBoolean, dataset.TypeDatetime,
		dataset.TypeCategorical, dataset.TypeText:
		return true
	}
	return false
}
