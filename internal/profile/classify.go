package profile

import (
	"regexp"
	"strconv"
	"strings"

	"datalens/domain/dataset"
)

// Granularity selects between the coarse two-way and the fine five-way
// column classification.
type Granularity int

const (
	// GranularityCoarse classifies quantitative vs qualitative from the
	// numeric-parseable ratio over a capped sample.
	GranularityCoarse Granularity = iota
	// GranularityFine classifies numeric / boolean / datetime /
	// categorical / text from threshold ratios.
	GranularityFine
)

const (
	// classifySampleCap bounds how many non-null values inference reads.
	classifySampleCap = 100

	coarseNumericThreshold = 0.6
	fineRatioThreshold     = 0.8
	categoricalUniqueRatio = 0.2
)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2})?)?$`),
	regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`),
	regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`),
	regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`),
	regexp.MustCompile(`^[A-Za-z]{3,9} \d{1,2}, \d{4}$`),
	regexp.MustCompile(`^\d{1,2} [A-Za-z]{3,9} \d{4}$`),
}

// Classifier infers a column's type from a sample of its values. One
// instance serves a whole pipeline run; the granularity is chosen by the
// caller, never implied.
type Classifier struct {
	Granularity Granularity
}

// NewClassifier returns a classifier with the given granularity.
func NewClassifier(granularity Granularity) *Classifier {
	return &Classifier{Granularity: granularity}
}

// Classify infers the type of one column from its parsed values. A user
// override always takes precedence over this result; callers apply
// overrides before statistics are computed.
func (c *Classifier) Classify(values []dataset.Row, colIdx int) dataset.ColumnType {
	sample := sampleNonNull(values, colIdx, classifySampleCap)
	if c.Granularity == GranularityFine {
		return classifyFine(sample)
	}
	return classifyCoarse(sample)
}

// classifyCoarse applies the two-way split: at least 60% numeric-parseable
// over the sampled non-null values means quantitative.
func classifyCoarse(sample []dataset.Cell) dataset.ColumnType {
	if len(sample) == 0 {
		return dataset.TypeQualitative
	}
	numeric := 0
	for _, cell := range sample {
		if cellNumericLike(cell) {
			numeric++
		}
	}
	if float64(numeric)/float64(len(sample)) >= coarseNumericThreshold {
		return dataset.TypeQuantitative
	}
	return dataset.TypeQualitative
}

// classifyFine applies the five-way split with 80% thresholds, falling back
// to the unique-value ratio to separate categorical from free text.
func classifyFine(sample []dataset.Cell) dataset.ColumnType {
	if len(sample) == 0 {
		return dataset.TypeText
	}

	numeric, boolean, date := 0, 0, 0
	unique := make(map[string]bool, len(sample))
	for _, cell := range sample {
		unique[cell.String()] = true
		if cellNumericLike(cell) {
			numeric++
		}
		if cellBooleanLike(cell) {
			boolean++
		}
		if cell.Kind == dataset.CellString && looksLikeDate(cell.Text) {
			date++
		}
	}

	n := float64(len(sample))
	switch {
	case float64(numeric)/n >= fineRatioThreshold:
		return dataset.TypeNumeric
	case float64(boolean)/n >= fineRatioThreshold:
		return dataset.TypeBoolean
	case float64(date)/n >= fineRatioThreshold:
		return dataset.TypeDatetime
	case float64(len(unique))/n < categoricalUniqueRatio:
		return dataset.TypeCategorical
	default:
		return dataset.TypeText
	}
}

// sampleNonNull collects up to cap non-null cells of one column.
func sampleNonNull(rows []dataset.Row, colIdx, cap int) []dataset.Cell {
	var sample []dataset.Cell
	for _, row := range rows {
		if colIdx >= len(row) || row[colIdx].IsNull() {
			continue
		}
		sample = append(sample, row[colIdx])
		if len(sample) >= cap {
			break
		}
	}
	return sample
}

func cellNumericLike(cell dataset.Cell) bool {
	switch cell.Kind {
	case dataset.CellNumber:
		return true
	case dataset.CellString:
		_, err := strconv.ParseFloat(cell.Text, 64)
		return err == nil
	default:
		return false
	}
}

func cellBooleanLike(cell dataset.Cell) bool {
	switch cell.Kind {
	case dataset.CellNumber:
		return cell.Number == 0 || cell.Number == 1
	case dataset.CellString:
		switch strings.ToLower(cell.Text) {
		case "true", "false", "yes", "no", "y", "n":
			return true
		}
	}
	return false
}

func looksLikeDate(value string) bool {
	for _, pattern := range datePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
