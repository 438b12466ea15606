package profile

import (
	"math"
	"sort"
	"strconv"

	"datalens/domain/dataset"

	"github.com/montanaflynn/stats"
)

// ComputeColumnStats profiles one column for its resolved type. The
// function is pure: the same values and type always produce the same
// ColumnInfo, so a type override can recompute a single column without
// touching the rest of the dataset.
func ComputeColumnStats(rows []dataset.Row, colIdx int, key, originalName string, colType dataset.ColumnType) dataset.ColumnInfo {
	info := dataset.ColumnInfo{
		Key:          key,
		OriginalName: originalName,
		Type:         colType,
	}

	total := len(rows)
	unique := make(map[string]bool)
	var order []string
	frequencies := make(map[string]int)

	for _, row := range rows {
		if colIdx >= len(row) || row[colIdx].IsNull() {
			info.MissingValues++
			continue
		}
		info.NonNullCount++
		rendered := row[colIdx].String()
		if !unique[rendered] {
			unique[rendered] = true
			order = append(order, rendered)
		}
		frequencies[rendered]++
	}

	info.UniqueValues = len(unique)
	if total > 0 {
		info.MissingPercent = 100 * float64(info.MissingValues) / float64(total)
	}

	info.Consistency = computeConsistency(rows, colIdx)

	if colType.IsNumericLike() {
		info.Numeric = computeNumericStats(rows, colIdx)
	} else {
		info.Categorical = computeCategoricalStats(order, frequencies)
	}

	return info
}

// computeNumericStats summarizes the finite numeric values of a column,
// sorted ascending. Median and quartiles are the elements at fixed sorted
// indices (floor(n/2), floor(n*0.25), floor(n*0.75)); this index rule is
// part of the profile contract, so interpolated percentiles are not used
// here.
func computeNumericStats(rows []dataset.Row, colIdx int) *dataset.NumericStats {
	values := numericValues(rows, colIdx)
	n := len(values)
	if n == 0 {
		return &dataset.NumericStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, _ := stats.Mean(values)
	stdDev, _ := stats.StandardDeviationPopulation(values)

	ns := &dataset.NumericStats{
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   mean,
		Median: sorted[n/2],
		StdDev: stdDev,
	}

	ns.Skewness = skewness(values, mean, stdDev)
	ns.IsSkewed = math.Abs(ns.Skewness) > 1

	q1 := sorted[int(float64(n)*0.25)]
	q3 := sorted[int(float64(n)*0.75)]
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr
	for _, v := range sorted {
		if v < lower || v > upper {
			ns.OutlierCount++
		}
	}

	ns.Histogram = buildHistogram(sorted)
	return ns
}

// skewness is the third standardized moment, zero for degenerate columns.
func skewness(values []float64, mean, stdDev float64) float64 {
	if stdDev == 0 || len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := (v - mean) / stdDev
		sum += d * d * d
	}
	return sum / float64(len(values))
}

// buildHistogram buckets sorted values adaptively: Sturges' rule as the
// base count, capped at 15 for ranges much wider than the sample, forced to
// the unique-value count when variety is low, widened toward 20 for narrow
// but varied ranges, and finally clamped to [5, 20].
func buildHistogram(sorted []float64) []dataset.HistogramBucket {
	n := len(sorted)
	if n == 0 {
		return nil
	}

	min, max := sorted[0], sorted[n-1]
	valueRange := max - min

	uniqueCount := 1
	for i := 1; i < n; i++ {
		if sorted[i] != sorted[i-1] {
			uniqueCount++
		}
	}

	buckets := int(math.Ceil(1 + math.Log2(float64(n))))
	if valueRange > float64(n)*10 && buckets > 15 {
		buckets = 15
	}
	if uniqueCount < 10 {
		buckets = uniqueCount
	} else if valueRange < 10 && uniqueCount > 5 && buckets < 20 {
		buckets = minInt(20, maxInt(buckets, uniqueCount))
	}
	if buckets < 5 {
		buckets = 5
	}
	if buckets > 20 {
		buckets = 20
	}

	result := make([]dataset.HistogramBucket, buckets)
	width := valueRange / float64(buckets)
	if width == 0 {
		// All values identical: one occupied bucket.
		for i := range result {
			result[i] = dataset.HistogramBucket{Low: min, High: max}
		}
		result[0].Count = n
		return result
	}

	for i := range result {
		result[i].Low = min + float64(i)*width
		result[i].High = min + float64(i+1)*width
	}
	for _, v := range sorted {
		idx := int((v - min) / width)
		if idx >= buckets {
			idx = buckets - 1 // max lands in the last bucket
		}
		result[idx].Count++
	}
	return result
}

// computeCategoricalStats builds the frequency distribution and picks the
// mode: the first value, in column order, attaining the maximum frequency.
func computeCategoricalStats(order []string, frequencies map[string]int) *dataset.CategoricalStats {
	cs := &dataset.CategoricalStats{Frequencies: frequencies}
	for _, value := range order {
		if frequencies[value] > cs.ModeFrequency {
			cs.ModeFrequency = frequencies[value]
			cs.Mode = value
		}
	}
	return cs
}

// computeConsistency tallies how each raw value of the column parses and
// derives the mixed-type penalty used by the quality score.
func computeConsistency(rows []dataset.Row, colIdx int) *dataset.TypeConsistency {
	tc := &dataset.TypeConsistency{}
	for _, row := range rows {
		if colIdx >= len(row) || row[colIdx].IsNull() {
			tc.NullCount++
			continue
		}
		cell := row[colIdx]
		switch {
		case cell.Kind == dataset.CellString && cellBooleanLike(cell):
			tc.BooleanCount++
		case cellNumericLike(cell):
			tc.NumericCount++
		default:
			tc.StringCount++
		}
	}

	nonNull := tc.NumericCount + tc.StringCount + tc.BooleanCount
	if nonNull == 0 {
		return tc
	}

	shapes := 0
	majority := 0
	for _, count := range []int{tc.NumericCount, tc.StringCount, tc.BooleanCount} {
		if count > 0 {
			shapes++
		}
		if count > majority {
			majority = count
		}
	}
	tc.MixedTypes = shapes > 1
	tc.InconsistencyRatio = float64(nonNull-majority) / float64(nonNull)
	return tc
}

// numericValues extracts the finite numeric interpretation of a column.
// String cells that parse as finite numbers are included so an overridden
// quantitative column still yields statistics.
func numericValues(rows []dataset.Row, colIdx int) []float64 {
	var values []float64
	for _, row := range rows {
		if colIdx >= len(row) {
			continue
		}
		cell := row[colIdx]
		switch cell.Kind {
		case dataset.CellNumber:
			values = append(values, cell.Number)
		case dataset.CellString:
			if v, err := strconv.ParseFloat(cell.Text, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
				values = append(values, v)
			}
		}
	}
	return values
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
