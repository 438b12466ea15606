// Package preprocess applies cleaning methods to a dataset version and
// records the result as a new child version: missing-value fills, row drops,
// outlier trimming and explicit type casts. Every application writes a new
// blob; source files are never modified in place.
package preprocess

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"datalens/adapters/excel"
	"datalens/domain/core"
	"datalens/domain/dataset"
	"datalens/internal/profile"
	"datalens/ports"

	"github.com/montanaflynn/stats"
)

// Supported preprocessing methods.
const (
	MethodFillMissingMean   = "fill_missing_mean"
	MethodFillMissingMedian = "fill_missing_median"
	MethodFillMissingMode   = "fill_missing_mode"
	MethodDropMissingRows   = "drop_missing_rows"
	MethodDropDuplicateRows = "drop_duplicate_rows"
	MethodTrimOutliers      = "trim_outliers"
	MethodCastType          = "cast_type"
)

// Service applies preprocessing methods and maintains the version chain
type Service struct {
	repo       ports.DatasetRepository
	versions   ports.VersionRepository
	storage    ports.FileStorage
	pool       *profile.Pool
	profileCfg profile.Config
}

// NewService creates a preprocessing service
func NewService(
	repo ports.DatasetRepository,
	versions ports.VersionRepository,
	storage ports.FileStorage,
	pool *profile.Pool,
	profileCfg profile.Config,
) *Service {
	return &Service{
		repo:       repo,
		versions:   versions,
		storage:    storage,
		pool:       pool,
		profileCfg: profileCfg,
	}
}

// Result is one preprocessing application: the new version, the fresh
// profile of the derived file, and how many rows were affected.
type Result struct {
	Version      *dataset.Version `json:"version"`
	Profile      *dataset.Profile `json:"profile"`
	RowsBefore   int              `json:"rows_before"`
	RowsAfter    int              `json:"rows_after"`
	CellsChanged int              `json:"cells_changed"`
}

// Apply runs one method against a version's file and records the derived
// file as a child version. versionID may be empty to target the root
// version. The dataset's current profile is replaced by the derived one only
// after the whole chain succeeds.
func (s *Service) Apply(ctx context.Context, datasetID core.DatasetID, versionID core.VersionID, method string, params map[string]string) (*Result, error) {
	ds, err := s.repo.GetByID(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	parent, err := s.resolveParent(ctx, datasetID, versionID)
	if err != nil {
		return nil, err
	}

	table, err := s.loadTable(ctx, parent, ds.Filename)
	if err != nil {
		return nil, err
	}

	outcome, err := applyMethod(table, method, params)
	if err != nil {
		return nil, err
	}

	text := renderCSV(table.originals, outcome.rows)
	derivedName := derivedFilename(ds.Filename, method)
	filePath, err := s.storage.Store(ctx, strings.NewReader(text), derivedName)
	if err != nil {
		return nil, fmt.Errorf("failed to store derived file: %w", err)
	}

	types := mergeTypes(parent.ColumnTypes, outcome.typeChanges)
	prof, err := s.reprofile(ctx, text, types)
	if err != nil {
		s.discardBlob(ctx, filePath)
		return nil, err
	}

	version := dataset.NewChildVersion(parent, method, params, filePath, prof.ColumnTypes())
	if err := s.versions.Create(ctx, version); err != nil {
		s.discardBlob(ctx, filePath)
		return nil, err
	}

	ds.Profile = prof
	ds.UpdatedAt = core.Now()
	if err := s.repo.Update(ctx, ds); err != nil {
		return nil, err
	}

	log.Printf("[Preprocess] Applied %s to dataset %s: %d -> %d rows, %d cells changed",
		method, datasetID, len(table.rows), len(outcome.rows), outcome.cellsChanged)

	return &Result{
		Version:      version,
		Profile:      prof,
		RowsBefore:   len(table.rows),
		RowsAfter:    len(outcome.rows),
		CellsChanged: outcome.cellsChanged,
	}, nil
}

func (s *Service) resolveParent(ctx context.Context, datasetID core.DatasetID, versionID core.VersionID) (*dataset.Version, error) {
	if versionID == "" {
		return s.versions.GetRoot(ctx, datasetID)
	}
	parent, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if parent.DatasetID != datasetID {
		return nil, fmt.Errorf("%w: version %s does not belong to dataset %s", core.ErrVersionNotFound, versionID, datasetID)
	}
	return parent, nil
}

// table is a fully parsed version file. Preprocessing always works on every
// row, never on a sample.
type table struct {
	originals []string
	keys      []string
	rows      []dataset.Row
}

func (s *Service) loadTable(ctx context.Context, v *dataset.Version, datasetFilename string) (*table, error) {
	reader, err := s.storage.GetReader(ctx, v.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open version file: %w", err)
	}
	defer reader.Close()

	var text string
	if v.IsRoot() && excel.IsExcelFilename(datasetFilename) {
		text, err = excel.ConvertToCSV(reader)
	} else {
		var raw []byte
		raw, err = io.ReadAll(reader)
		text = string(raw)
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, core.ErrEmptyFile
	}

	headerLine, _, _ := strings.Cut(text, "\n")
	sep := profile.DetectSeparator(text)
	originals, keys, _ := profile.NormalizeHeaders(strings.TrimRight(headerLine, "\r"), sep)

	parsed := profile.ParseRows(text, sep, len(keys), 0)
	if len(parsed.Rows) == 0 {
		return nil, core.ErrEmptyFile
	}

	return &table{originals: originals, keys: keys, rows: parsed.Rows}, nil
}

func (s *Service) reprofile(ctx context.Context, text string, knownTypes map[string]dataset.ColumnType) (*dataset.Profile, error) {
	pipeline := profile.NewPipeline(s.profileCfg, s.pool, nil)
	return pipeline.RunWithTypes(ctx, text, knownTypes)
}

func (s *Service) discardBlob(ctx context.Context, filePath string) {
	if err := s.storage.Delete(ctx, filePath); err != nil {
		log.Printf("[Preprocess] Failed to discard blob %s: %v", filePath, err)
	}
}

func mergeTypes(parent map[string]dataset.ColumnType, changes map[string]dataset.ColumnType) map[string]dataset.ColumnType {
	if len(parent) == 0 && len(changes) == 0 {
		return nil
	}
	merged := make(map[string]dataset.ColumnType, len(parent)+len(changes))
	for k, t := range parent {
		merged[k] = t
	}
	for k, t := range changes {
		merged[k] = t
	}
	return merged
}

func derivedFilename(filename, method string) string {
	base := filename
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base + "_" + method + ".csv"
}

// renderCSV writes the table back out with the original header names and
// canonical cell forms. Derived files are always comma separated.
func renderCSV(originals []string, rows []dataset.Row) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Write(originals)
	for _, row := range rows {
		w.Write(row.Render())
	}
	w.Flush()
	return sb.String()
}

// methodOutcome is what one method application produced.
type methodOutcome struct {
	rows         []dataset.Row
	cellsChanged int
	typeChanges  map[string]dataset.ColumnType
}

func applyMethod(t *table, method string, params map[string]string) (*methodOutcome, error) {
	switch method {
	case MethodFillMissingMean, MethodFillMissingMedian, MethodFillMissingMode:
		return fillMissing(t, method, params)
	case MethodDropMissingRows:
		return dropMissingRows(t, params)
	case MethodDropDuplicateRows:
		return dropDuplicateRows(t)
	case MethodTrimOutliers:
		return trimOutliers(t, params)
	case MethodCastType:
		return castType(t, params)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownMethod, method)
	}
}

// columnIndex resolves the "column" param to a position in the table.
func columnIndex(t *table, params map[string]string) (int, error) {
	key, err := core.ParseColumnKey(params["column"])
	if err != nil {
		return -1, fmt.Errorf("%w: column parameter required", core.ErrColumnNotFound)
	}
	for i, k := range t.keys {
		if k == key.String() {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", core.ErrColumnNotFound, key)
}

// fillMissing replaces a column's nulls with its mean, median or mode. Mean
// and median require numeric content; mode works on any column.
func fillMissing(t *table, method string, params map[string]string) (*methodOutcome, error) {
	idx, err := columnIndex(t, params)
	if err != nil {
		return nil, err
	}

	var fill dataset.Cell
	switch method {
	case MethodFillMissingMode:
		mode, ok := columnMode(t.rows, idx)
		if !ok {
			return nil, fmt.Errorf("%w: column %s has no non-null values", core.ErrInsufficientData, t.keys[idx])
		}
		fill = mode
	default:
		values := columnNumbers(t.rows, idx)
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: column %s has no numeric values", core.ErrInsufficientData, t.keys[idx])
		}
		if method == MethodFillMissingMean {
			mean, err := stats.Mean(values)
			if err != nil {
				return nil, fmt.Errorf("%w: column %s: %v", core.ErrInsufficientData, t.keys[idx], err)
			}
			fill = dataset.NumberCell(mean)
		} else {
			sorted := make([]float64, len(values))
			copy(sorted, values)
			sort.Float64s(sorted)
			fill = dataset.NumberCell(sorted[len(sorted)/2])
		}
	}

	out := &methodOutcome{rows: make([]dataset.Row, len(t.rows))}
	for i, row := range t.rows {
		newRow := make(dataset.Row, len(row))
		copy(newRow, row)
		if newRow[idx].IsNull() {
			newRow[idx] = fill
			out.cellsChanged++
		}
		out.rows[i] = newRow
	}
	return out, nil
}

// dropMissingRows removes rows with a null anywhere, or only in the named
// column when the "column" param is set.
func dropMissingRows(t *table, params map[string]string) (*methodOutcome, error) {
	idx := -1
	if params["column"] != "" {
		var err error
		idx, err = columnIndex(t, params)
		if err != nil {
			return nil, err
		}
	}

	out := &methodOutcome{}
	for _, row := range t.rows {
		if rowHasMissing(row, idx) {
			continue
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

func rowHasMissing(row dataset.Row, idx int) bool {
	if idx >= 0 {
		return row[idx].IsNull()
	}
	for _, cell := range row {
		if cell.IsNull() {
			return true
		}
	}
	return false
}

// dropDuplicateRows keeps the first occurrence of each row, comparing by
// the same canonical hash duplicate detection uses.
func dropDuplicateRows(t *table) (*methodOutcome, error) {
	seen := make(map[core.RowHash]bool, len(t.rows))
	out := &methodOutcome{}
	for _, row := range t.rows {
		h := core.NewRowHash(row.Render())
		if seen[h] {
			continue
		}
		seen[h] = true
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// trimOutliers drops rows whose value in the named numeric column falls
// outside the 1.5 IQR fences. Null cells are kept; they are missing, not
// outlying.
func trimOutliers(t *table, params map[string]string) (*methodOutcome, error) {
	idx, err := columnIndex(t, params)
	if err != nil {
		return nil, err
	}

	values := columnNumbers(t.rows, idx)
	if len(values) < 4 {
		return nil, fmt.Errorf("%w: column %s needs at least 4 numeric values", core.ErrInsufficientData, t.keys[idx])
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := sorted[int(float64(len(sorted))*0.25)]
	q3 := sorted[int(float64(len(sorted))*0.75)]
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	out := &methodOutcome{}
	for _, row := range t.rows {
		cell := row[idx]
		if cell.Kind == dataset.CellNumber && (cell.Number < lower || cell.Number > upper) {
			continue
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// castType rewrites a column's cells to the target type and records the
// type change for the child version. Values that cannot be cast become null.
func castType(t *table, params map[string]string) (*methodOutcome, error) {
	idx, err := columnIndex(t, params)
	if err != nil {
		return nil, err
	}

	target := dataset.ColumnType(params["type"])
	switch target {
	case dataset.TypeQuantitative, dataset.TypeQualitative,
		dataset.TypeNumeric, dataset.TypeBoolean, dataset.TypeDatetime,
		dataset.TypeCategorical, dataset.TypeText:
	default:
		return nil, fmt.Errorf("%w: unknown target type %q", core.ErrTypeMismatch, params["type"])
	}

	out := &methodOutcome{
		rows:        make([]dataset.Row, len(t.rows)),
		typeChanges: map[string]dataset.ColumnType{t.keys[idx]: target},
	}
	for i, row := range t.rows {
		newRow := make(dataset.Row, len(row))
		copy(newRow, row)
		cast, changed := castCell(newRow[idx], target)
		if changed {
			out.cellsChanged++
		}
		newRow[idx] = cast
		out.rows[i] = newRow
	}
	return out, nil
}

func castCell(cell dataset.Cell, target dataset.ColumnType) (dataset.Cell, bool) {
	if cell.IsNull() {
		return cell, false
	}
	if target.IsNumericLike() {
		if cell.Kind == dataset.CellNumber {
			return cell, false
		}
		recoerced := profile.CoerceCell(cell.Text)
		if recoerced.Kind == dataset.CellNumber {
			return recoerced, true
		}
		// Not parseable as a number; the value is lost to null.
		return dataset.NullCell(), true
	}
	if cell.Kind == dataset.CellNumber {
		return dataset.StringCell(cell.String()), true
	}
	return cell, false
}

func columnNumbers(rows []dataset.Row, idx int) []float64 {
	var values []float64
	for _, row := range rows {
		if row[idx].Kind == dataset.CellNumber {
			values = append(values, row[idx].Number)
		}
	}
	return values
}

// columnMode returns the first value, in column order, attaining the
// maximum frequency.
func columnMode(rows []dataset.Row, idx int) (dataset.Cell, bool) {
	frequencies := make(map[string]int)
	var order []dataset.Cell
	for _, row := range rows {
		cell := row[idx]
		if cell.IsNull() {
			continue
		}
		rendered := cell.String()
		if frequencies[rendered] == 0 {
			order = append(order, cell)
		}
		frequencies[rendered]++
	}
	if len(order) == 0 {
		return dataset.NullCell(), false
	}

	best := order[0]
	bestCount := 0
	for _, cell := range order {
		if count := frequencies[cell.String()]; count > bestCount {
			bestCount = count
			best = cell
		}
	}
	return best, true
}
