// Package profile implements the dataset profiling pipeline: separator
// detection, header normalization, row parsing with sampling, type
// inference, per-column statistics, duplicate detection and pairwise
// correlation, sequenced by a progress-reporting orchestrator.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"datalens/domain/core"
	"datalens/domain/dataset"
)

// State names one step of the profiling pipeline.
type State string

const (
	StateIdle                 State = "idle"
	StateReadingFile          State = "reading_file"
	StateParsingCSV           State = "parsing_csv"
	StateInferringTypes       State = "inferring_types"
	StateComputingStatistics  State = "computing_statistics"
	StateDetectingDuplicates  State = "detecting_duplicates"
	StateComputingCorrelation State = "computing_correlation"
	StateFinalizing           State = "finalizing"
	StateComplete             State = "complete"
	StateError                State = "error"
)

// ProgressFunc receives every state transition with a progress percentage.
// The pipeline guarantees the percentage never decreases within one run.
type ProgressFunc func(state State, percent int)

// Config tunes one pipeline instance.
type Config struct {
	RowSampleCap         int
	DuplicateSampleCap   int
	CorrelationColumnCap int
	CorrelationRowCap    int
	BatchSize            int
	// PoolCellLimit is the estimated cell count above which column
	// statistics stay on the sequential path even when a pool exists.
	PoolCellLimit int
	Timeout       time.Duration
	Granularity   Granularity
}

// DefaultConfig returns the pipeline defaults used by the service.
func DefaultConfig() Config {
	return Config{
		RowSampleCap:         10000,
		DuplicateSampleCap:   5000,
		CorrelationColumnCap: 20,
		CorrelationRowCap:    1000,
		BatchSize:            8,
		PoolCellLimit:        2_000_000,
		Timeout:              60 * time.Second,
		Granularity:          GranularityCoarse,
	}
}

// Pipeline profiles one file per Run invocation. Each invocation owns its
// working set; only the injected pool is shared across runs.
type Pipeline struct {
	cfg        Config
	classifier *Classifier
	pool       *Pool
	progress   ProgressFunc

	lastPercent int
}

// NewPipeline builds a pipeline. pool may be nil to force sequential
// execution; progress may be nil when no caller is listening.
func NewPipeline(cfg Config, pool *Pool, progress ProgressFunc) *Pipeline {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return &Pipeline{
		cfg:        cfg,
		classifier: NewClassifier(cfg.Granularity),
		pool:       pool,
		progress:   progress,
	}
}

// Run profiles raw CSV text with no prior type knowledge.
func (p *Pipeline) Run(ctx context.Context, text string) (*dataset.Profile, error) {
	return p.RunWithTypes(ctx, text, nil)
}

// RunWithTypes profiles raw CSV text. knownTypes is the persisted
// column -> type map from a stored version; entries there take precedence
// over inference, which is how reloads preserve user overrides.
func (p *Pipeline) RunWithTypes(ctx context.Context, text string, knownTypes map[string]dataset.ColumnType) (*dataset.Profile, error) {
	p.lastPercent = 0
	p.report(StateIdle, 0)

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	profile, err := p.run(ctx, text, knownTypes)
	if err != nil {
		p.report(StateError, p.lastPercent)
		return nil, err
	}
	p.report(StateComplete, 100)
	return profile, nil
}

func (p *Pipeline) run(ctx context.Context, text string, knownTypes map[string]dataset.ColumnType) (*dataset.Profile, error) {
	p.report(StateReadingFile, 2)
	if strings.TrimSpace(text) == "" {
		return nil, core.ErrEmptyFile
	}
	headerLine, ok := firstLine(text)
	if !ok {
		return nil, core.ErrMalformedHeader
	}

	p.report(StateParsingCSV, 10)
	sep := DetectSeparator(text)
	originals, keys, mapping := NormalizeHeaders(headerLine, sep)

	parsed := ParseRows(text, sep, len(keys), p.cfg.RowSampleCap)
	if len(parsed.Rows) == 0 {
		return nil, core.ErrEmptyFile
	}
	p.report(StateParsingCSV, 20)

	if err := p.checkDeadline(ctx); err != nil {
		return nil, err
	}

	p.report(StateInferringTypes, 25)
	types := make([]dataset.ColumnType, len(keys))
	overridden := make([]bool, len(keys))
	for i, key := range keys {
		if t, ok := knownTypes[key]; ok {
			types[i] = t
			overridden[i] = true
			continue
		}
		types[i] = p.classifier.Classify(parsed.Rows, i)
	}
	p.report(StateInferringTypes, 30)

	columns, err := p.computeStatistics(ctx, parsed.Rows, originals, keys, types, overridden)
	if err != nil {
		return nil, err
	}

	p.report(StateDetectingDuplicates, 75)
	dupes := DetectDuplicates(parsed.Rows, len(keys), p.cfg.DuplicateSampleCap)
	p.report(StateDetectingDuplicates, 80)

	if err := p.checkDeadline(ctx); err != nil {
		return nil, err
	}

	p.report(StateComputingCorrelation, 85)
	correlation := ComputeCorrelation(parsed.Rows, columns, p.cfg.CorrelationColumnCap, p.cfg.CorrelationRowCap)
	p.report(StateComputingCorrelation, 90)

	p.report(StateFinalizing, 95)
	profile := &dataset.Profile{
		ColumnKeys:         keys,
		OriginalNames:      originals,
		Mapping:            mapping,
		RowCount:           parsed.TotalRows,
		Sampled:            parsed.Sampled,
		SampleRows:         parsed.Rows,
		Columns:            columns,
		DuplicateRows:      dupes.Rows,
		DuplicateColumns:   dupes.Columns,
		DuplicateInspected: dupes.Inspected,
		DuplicateApprox:    dupes.Approximate || parsed.Sampled,
		TypeDistribution:   make(map[dataset.ColumnType]int, len(columns)),
		Correlation:        correlation,
	}
	for _, col := range columns {
		profile.MissingTotal += col.MissingValues
		profile.TypeDistribution[col.Type]++
	}

	return profile, nil
}

// computeStatistics profiles every column in batches. Work is delegated to
// the shared pool when one is available and the estimated volume is inside
// the safety limit; otherwise, and whenever the pool fails, the batches run
// sequentially with a deadline check between them. Results land in a
// preallocated slice indexed by column position, so pooled completion order
// can never reorder columns.
func (p *Pipeline) computeStatistics(ctx context.Context, rows []dataset.Row, originals, keys []string, types []dataset.ColumnType, overridden []bool) ([]dataset.ColumnInfo, error) {
	p.report(StateComputingStatistics, 35)

	columns := make([]dataset.ColumnInfo, len(keys))
	compute := func(i int) {
		columns[i] = ComputeColumnStats(rows, i, keys[i], originals[i], types[i])
		columns[i].Overridden = overridden[i]
	}

	estimatedCells := len(rows) * len(keys)
	if p.pool.Available() && estimatedCells <= p.cfg.PoolCellLimit {
		tasks := make([]func() error, 0, (len(keys)+p.cfg.BatchSize-1)/p.cfg.BatchSize)
		for start := 0; start < len(keys); start += p.cfg.BatchSize {
			start := start // per-iteration copy: module builds with pre-1.22 loop semantics
			end := minInt(start+p.cfg.BatchSize, len(keys))
			tasks = append(tasks, func() error {
				for i := start; i < end; i++ {
					compute(i)
				}
				return nil
			})
		}
		if err := p.pool.Run(ctx, tasks); err == nil {
			p.report(StateComputingStatistics, 70)
			return columns, nil
		} else if !errors.Is(err, core.ErrPoolUnavailable) {
			log.Printf("[Pipeline] pooled statistics failed, falling back to sequential: %v", err)
		}
	}

	// Sequential path: chunked, with a deadline check between batches so
	// one run cannot hog the invocation past its budget.
	for start := 0; start < len(keys); start += p.cfg.BatchSize {
		if err := p.checkDeadline(ctx); err != nil {
			return nil, err
		}
		end := minInt(start+p.cfg.BatchSize, len(keys))
		for i := start; i < end; i++ {
			compute(i)
		}
		done := float64(end) / float64(len(keys))
		p.report(StateComputingStatistics, 35+int(done*35))
	}

	return columns, nil
}

// OverrideColumnType reclassifies one column and recomputes only that
// column's statistics from the stored sample rows. The rest of the profile
// is left untouched.
func OverrideColumnType(p *dataset.Profile, key string, newType dataset.ColumnType) error {
	idx := -1
	for i, k := range p.ColumnKeys {
		if k == key {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: %s", core.ErrColumnNotFound, key)
	}

	oldType := p.Columns[idx].Type
	original := p.Columns[idx].OriginalName

	info := ComputeColumnStats(p.SampleRows, idx, key, original, newType)
	info.Overridden = true
	p.Columns[idx] = info

	p.TypeDistribution[oldType]--
	if p.TypeDistribution[oldType] <= 0 {
		delete(p.TypeDistribution, oldType)
	}
	p.TypeDistribution[newType]++
	return nil
}

// report forwards a transition, clamping the percentage so progress is
// monotonically non-decreasing within a run.
func (p *Pipeline) report(state State, percent int) {
	if percent < p.lastPercent {
		percent = p.lastPercent
	}
	p.lastPercent = percent
	if p.progress != nil {
		p.progress(state, percent)
	}
}

// checkDeadline maps a tripped context to the pipeline's timeout error.
func (p *Pipeline) checkDeadline(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w after %s", core.ErrProfileTimeout, p.cfg.Timeout)
	default:
		return err
	}
}

// firstLine returns the first non-empty line of text.
func firstLine(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			return line, true
		}
	}
	return "", false
}
