package profile

import (
	"math"
	"testing"

	"datalens/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numericColumn(values ...float64) []dataset.Row {
	rows := make([]dataset.Row, len(values))
	for i, v := range values {
		rows[i] = dataset.Row{dataset.NumberCell(v)}
	}
	return rows
}

func TestComputeColumnStatsNumeric(t *testing.T) {
	rows := numericColumn(1, 2, 3, 4, 100)
	info := ComputeColumnStats(rows, 0, "x", "x", dataset.TypeQuantitative)

	require.NotNil(t, info.Numeric)
	ns := info.Numeric

	assert.Equal(t, 1.0, ns.Min)
	assert.Equal(t, 100.0, ns.Max)
	assert.Equal(t, 22.0, ns.Mean)
	// Median is the element at sorted index n/2, not interpolated.
	assert.Equal(t, 3.0, ns.Median)
	assert.InDelta(t, math.Sqrt(1522), ns.StdDev, 1e-9)

	// Q1=2, Q3=4, IQR fences [-1, 7]: only 100 lies outside.
	assert.Equal(t, 1, ns.OutlierCount)

	assert.Greater(t, ns.Skewness, 1.0)
	assert.True(t, ns.IsSkewed)

	assert.Equal(t, 5, info.NonNullCount)
	assert.Equal(t, 5, info.UniqueValues)
	assert.Equal(t, 0, info.MissingValues)
}

func TestComputeColumnStatsMedianEvenCount(t *testing.T) {
	info := ComputeColumnStats(numericColumn(1, 2, 3, 4), 0, "x", "x", dataset.TypeQuantitative)
	// sorted[4/2] = sorted[2] = 3, the upper of the middle pair.
	assert.Equal(t, 3.0, info.Numeric.Median)
}

func TestComputeColumnStatsConstantColumn(t *testing.T) {
	info := ComputeColumnStats(numericColumn(5, 5, 5, 5), 0, "x", "x", dataset.TypeQuantitative)
	ns := info.Numeric

	assert.Equal(t, 0.0, ns.StdDev)
	assert.Equal(t, 0.0, ns.Skewness)
	assert.False(t, ns.IsSkewed)
	assert.Equal(t, 0, ns.OutlierCount)

	// All identical values land in a single occupied bucket.
	total := 0
	for _, b := range ns.Histogram {
		total += b.Count
	}
	assert.Equal(t, 4, total)
	assert.Equal(t, 4, ns.Histogram[0].Count)
}

func TestComputeColumnStatsMissingPercent(t *testing.T) {
	rows := []dataset.Row{
		{dataset.NumberCell(1)},
		{dataset.NullCell()},
		{dataset.NumberCell(2)},
		{dataset.NullCell()},
	}
	info := ComputeColumnStats(rows, 0, "x", "x", dataset.TypeQuantitative)

	assert.Equal(t, 2, info.MissingValues)
	assert.Equal(t, 2, info.NonNullCount)
	assert.Equal(t, 50.0, info.MissingPercent)
}

func TestComputeColumnStatsCategorical(t *testing.T) {
	rows := column(
		dataset.StringCell("a"), dataset.StringCell("a"),
		dataset.StringCell("a"), dataset.StringCell("b"),
	)
	info := ComputeColumnStats(rows, 0, "c", "c", dataset.TypeQualitative)

	require.NotNil(t, info.Categorical)
	assert.Equal(t, "a", info.Categorical.Mode)
	assert.Equal(t, 3, info.Categorical.ModeFrequency)
	assert.Equal(t, map[string]int{"a": 3, "b": 1}, info.Categorical.Frequencies)
	assert.Equal(t, 2, info.UniqueValues)
}

func TestModeIsFirstAtMaxFrequency(t *testing.T) {
	// "b" and "a" tie at two occurrences; "b" appears first in the column.
	rows := column(
		dataset.StringCell("b"), dataset.StringCell("a"),
		dataset.StringCell("a"), dataset.StringCell("b"),
		dataset.StringCell("c"),
	)
	info := ComputeColumnStats(rows, 0, "c", "c", dataset.TypeQualitative)
	assert.Equal(t, "b", info.Categorical.Mode)
	assert.Equal(t, 2, info.Categorical.ModeFrequency)
}

func TestNumberRenderingCollapsesEquivalentForms(t *testing.T) {
	// 1 and 1.0 parse to the same float and must count as one value.
	rows := []dataset.Row{
		{CoerceCell("1")},
		{CoerceCell("1.0")},
		{CoerceCell("1.00")},
	}
	info := ComputeColumnStats(rows, 0, "x", "x", dataset.TypeQualitative)
	assert.Equal(t, 1, info.UniqueValues)
	assert.Equal(t, "1", info.Categorical.Mode)
	assert.Equal(t, 3, info.Categorical.ModeFrequency)
}

func TestComputeConsistencyMixedShapes(t *testing.T) {
	rows := column(
		dataset.NumberCell(1), dataset.NumberCell(2), dataset.NumberCell(3),
		dataset.StringCell("oops"), dataset.NullCell(),
	)
	info := ComputeColumnStats(rows, 0, "x", "x", dataset.TypeQuantitative)

	require.NotNil(t, info.Consistency)
	tc := info.Consistency
	assert.True(t, tc.MixedTypes)
	assert.Equal(t, 3, tc.NumericCount)
	assert.Equal(t, 1, tc.StringCount)
	assert.Equal(t, 1, tc.NullCount)
	assert.InDelta(t, 0.25, tc.InconsistencyRatio, 1e-9)
}

func TestComputeNumericStatsIncludesParseableStrings(t *testing.T) {
	// An overridden quantitative column may still hold string cells.
	rows := []dataset.Row{
		{dataset.StringCell("10")},
		{dataset.StringCell("20")},
		{dataset.NumberCell(30)},
	}
	info := ComputeColumnStats(rows, 0, "x", "x", dataset.TypeQuantitative)
	assert.Equal(t, 20.0, info.Numeric.Mean)
	assert.Equal(t, 10.0, info.Numeric.Min)
}

func TestBuildHistogramBucketBounds(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i)
	}
	info := ComputeColumnStats(numericColumn(values...), 0, "x", "x", dataset.TypeQuantitative)
	hist := info.Numeric.Histogram

	require.NotEmpty(t, hist)
	assert.GreaterOrEqual(t, len(hist), 5)
	assert.LessOrEqual(t, len(hist), 20)

	total := 0
	for i, b := range hist {
		total += b.Count
		if i > 0 {
			assert.InDelta(t, hist[i-1].High, b.Low, 1e-9)
		}
	}
	assert.Equal(t, 100, total)
	assert.Equal(t, 0.0, hist[0].Low)
	assert.InDelta(t, 99.0, hist[len(hist)-1].High, 1e-9)
}
