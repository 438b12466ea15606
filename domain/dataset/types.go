package dataset

import (
	"mime/multipart"

	"datalens/domain/core"
)

// DatasetStatus represents the processing state of a dataset
type DatasetStatus string

const (
	StatusUploaded   DatasetStatus = "uploaded"
	StatusProcessing DatasetStatus = "processing"
	StatusReady      DatasetStatus = "ready"
	StatusFailed     DatasetStatus = "failed"
)

// ColumnType classifies a column. The coarse pair is the pipeline default;
// the fine five-way split is available behind the classifier's granularity
// switch.
type ColumnType string

const (
	// Coarse types
	TypeQuantitative ColumnType = "quantitative"
	TypeQualitative  ColumnType = "qualitative"

	// Fine-grained types
	TypeNumeric     ColumnType = "numeric"
	TypeBoolean     ColumnType = "boolean"
	TypeDatetime    ColumnType = "datetime"
	TypeCategorical ColumnType = "categorical"
	TypeText        ColumnType = "text"
)

// IsNumericLike reports whether statistics for this type use the
// quantitative path.
func (t ColumnType) IsNumericLike() bool {
	return t == TypeQuantitative || t == TypeNumeric
}

// ColumnMapping is the bidirectional map between unique column keys and
// original (possibly duplicated) header strings.
//
// Invariant: every key maps to exactly one original name; an original name
// may map to several keys.
type ColumnMapping struct {
	KeyToOriginal  map[string]string   `json:"key_to_original"`
	OriginalToKeys map[string][]string `json:"original_to_keys"`
	// DuplicateCounts records how many times each duplicated original
	// header appeared. Headers that were unique are absent.
	DuplicateCounts map[string]int `json:"duplicate_counts,omitempty"`
}

// HistogramBucket is one bar of a numeric column's histogram.
type HistogramBucket struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// NumericStats holds the quantitative-column statistics.
type NumericStats struct {
	Min          float64           `json:"min"`
	Max          float64           `json:"max"`
	Mean         float64           `json:"mean"`
	Median       float64           `json:"median"`
	StdDev       float64           `json:"std_dev"`
	Skewness     float64           `json:"skewness"`
	IsSkewed     bool              `json:"is_skewed"`
	OutlierCount int               `json:"outlier_count"`
	Histogram    []HistogramBucket `json:"histogram,omitempty"`
}

// CategoricalStats holds the qualitative-column statistics.
type CategoricalStats struct {
	// Mode is the first value (in column order) attaining the maximum
	// frequency.
	Mode          string         `json:"mode"`
	ModeFrequency int            `json:"mode_frequency"`
	Frequencies   map[string]int `json:"frequencies"`
}

// TypeConsistency is the per-column breakdown of how raw values parse.
type TypeConsistency struct {
	NumericCount int `json:"numeric_count"`
	StringCount  int `json:"string_count"`
	BooleanCount int `json:"boolean_count"`
	NullCount    int `json:"null_count"`
	// MixedTypes is set when more than one non-null shape is present.
	MixedTypes bool `json:"mixed_types"`
	// InconsistencyRatio = minority shape count / non-null count.
	InconsistencyRatio float64 `json:"inconsistency_ratio"`
}

// ColumnInfo is one column's profile.
//
// Invariant: MissingValues + NonNullCount == the dataset's RowCount sampled
// for this column, and MissingPercent == 100 * MissingValues / total rows.
// UniqueValues is counted over non-null values only.
type ColumnInfo struct {
	Key          string     `json:"key"`
	OriginalName string     `json:"original_name,omitempty"`
	Type         ColumnType `json:"type"`
	// Overridden is set when the type came from a user override or a
	// persisted version type map rather than inference.
	Overridden bool `json:"overridden,omitempty"`

	NonNullCount   int     `json:"non_null_count"`
	UniqueValues   int     `json:"unique_values"`
	MissingValues  int     `json:"missing_values"`
	MissingPercent float64 `json:"missing_percent"`

	Numeric     *NumericStats     `json:"numeric,omitempty"`
	Categorical *CategoricalStats `json:"categorical,omitempty"`
	Consistency *TypeConsistency  `json:"consistency,omitempty"`
}

// CorrelationResult is a symmetric Pearson matrix over the included
// numeric columns.
//
// Invariants: Matrix is square with len(Labels) rows, unit diagonal,
// Matrix[i][j] == Matrix[j][i], NaN-free with values in [-1, 1].
// Columns beyond the engine's cap are excluded; that truncation is a
// documented fidelity trade-off, not an error.
type CorrelationResult struct {
	Labels []string    `json:"labels"`
	Matrix [][]float64 `json:"matrix"`
	// Truncated is set when numeric columns were excluded by the cap.
	Truncated bool `json:"truncated,omitempty"`
}

// Profile is the complete profiling result for one file load.
type Profile struct {
	ColumnKeys    []string      `json:"column_keys"`
	OriginalNames []string      `json:"original_names,omitempty"`
	Mapping       ColumnMapping `json:"mapping"`

	// RowCount is the true total; SampleRows may hold fewer when the
	// parser sampled.
	RowCount   int   `json:"row_count"`
	Sampled    bool  `json:"sampled"`
	SampleRows []Row `json:"-"`

	Columns []ColumnInfo `json:"columns"`

	MissingTotal     int `json:"missing_total"`
	DuplicateRows    int `json:"duplicate_rows"`
	DuplicateColumns int `json:"duplicate_columns"`
	// DuplicateInspected is how many rows duplicate detection actually
	// looked at; duplicate ratios must use it, not the sample size.
	DuplicateInspected int `json:"duplicate_inspected,omitempty"`
	// DuplicateApprox is set when duplicate counts were computed over a
	// bounded sample rather than every row.
	DuplicateApprox bool `json:"duplicate_approx,omitempty"`

	TypeDistribution map[ColumnType]int `json:"type_distribution"`
	Correlation      *CorrelationResult `json:"correlation,omitempty"`
}

// ColumnTypes returns the persisted column -> type map for this profile.
func (p *Profile) ColumnTypes() map[string]ColumnType {
	types := make(map[string]ColumnType, len(p.Columns))
	for _, col := range p.Columns {
		types[col.Key] = col.Type
	}
	return types
}

// ColumnByKey finds a column profile by unique key.
func (p *Profile) ColumnByKey(key string) (*ColumnInfo, bool) {
	for i := range p.Columns {
		if p.Columns[i].Key == key {
			return &p.Columns[i], true
		}
	}
	return nil, false
}

// Dataset represents a stored dataset and its current profile.
type Dataset struct {
	ID       core.DatasetID `json:"id"`
	Filename string         `json:"filename"`
	FilePath string         `json:"file_path,omitempty"`
	FileSize int64          `json:"file_size"`
	MimeType string         `json:"mime_type"`

	Status       DatasetStatus `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`

	Profile *Profile `json:"profile,omitempty"`

	CreatedAt core.Timestamp `json:"created_at"`
	UpdatedAt core.Timestamp `json:"updated_at"`
}

// NewDataset creates a new dataset record in the uploaded state.
func NewDataset(filename string) *Dataset {
	return &Dataset{
		ID:        core.DatasetID(core.NewID()),
		Filename:  filename,
		Status:    StatusUploaded,
		CreatedAt: core.Now(),
		UpdatedAt: core.Now(),
	}
}

// IsReady returns true if the dataset is ready for use
func (d *Dataset) IsReady() bool {
	return d.Status == StatusReady
}

// Version is one entry in a dataset's preprocessing history. The root
// version carries the authoritative column -> type map consulted before any
// re-inference on reload.
type Version struct {
	ID        core.VersionID `json:"id"`
	DatasetID core.DatasetID `json:"dataset_id"`
	ParentID  core.VersionID `json:"parent_id,omitempty"`

	// Label is "original" for the root version, otherwise the applied
	// preprocessing method name.
	Label    string            `json:"label"`
	Params   map[string]string `json:"params,omitempty"`
	FilePath string            `json:"file_path"`

	ColumnTypes map[string]ColumnType `json:"column_types"`

	// AnalysisResult is populated asynchronously by the remote
	// pre-analysis service and polled by clients until non-empty.
	AnalysisResult string `json:"analysis_result,omitempty"`

	CreatedAt core.Timestamp `json:"created_at"`
}

// IsRoot reports whether this is the original uploaded version.
func (v *Version) IsRoot() bool {
	return v.ParentID == ""
}

// NewRootVersion creates the "original" version for a freshly profiled
// dataset.
func NewRootVersion(datasetID core.DatasetID, filePath string, types map[string]ColumnType) *Version {
	return &Version{
		ID:          core.VersionID(core.NewID()),
		DatasetID:   datasetID,
		Label:       "original",
		FilePath:    filePath,
		ColumnTypes: types,
		CreatedAt:   core.Now(),
	}
}

// NewChildVersion creates a version derived from parent by a preprocessing
// method.
func NewChildVersion(parent *Version, method string, params map[string]string, filePath string, types map[string]ColumnType) *Version {
	return &Version{
		ID:          core.VersionID(core.NewID()),
		DatasetID:   parent.DatasetID,
		ParentID:    parent.ID,
		Label:       method,
		Params:      params,
		FilePath:    filePath,
		ColumnTypes: types,
		CreatedAt:   core.Now(),
	}
}

// Upload represents an uploaded file before processing
type Upload struct {
	Filename string
	File     multipart.File
	MimeType string
	Size     int64
}
