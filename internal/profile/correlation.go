package profile

import (
	"math"
	"strconv"

	"datalens/domain/dataset"

	"gonum.org/v1/gonum/stat"
)

// ComputeCorrelation builds the Pearson matrix over the numeric-typed
// columns. When more numeric columns exist than columnCap, the first
// columnCap (in dataset order) are used; the truncation is a fidelity
// trade-off recorded on the result, not an error. Rows are capped at
// rowCap with a deterministic stride. Degenerate pairs (fewer than two
// paired finite values, or zero variance) correlate as 0, the diagonal is
// exactly 1, and any NaN is coerced to 0 before the matrix is returned.
func ComputeCorrelation(rows []dataset.Row, columns []dataset.ColumnInfo, columnCap, rowCap int) *dataset.CorrelationResult {
	var included []int
	truncated := false
	for idx, col := range columns {
		if !col.Type.IsNumericLike() {
			continue
		}
		if columnCap > 0 && len(included) >= columnCap {
			truncated = true
			break
		}
		included = append(included, idx)
	}

	labels := make([]string, len(included))
	for i, idx := range included {
		labels[i] = columns[idx].Key
	}

	result := &dataset.CorrelationResult{
		Labels:    labels,
		Matrix:    make([][]float64, len(included)),
		Truncated: truncated,
	}
	for i := range result.Matrix {
		result.Matrix[i] = make([]float64, len(included))
		result.Matrix[i][i] = 1
	}
	if len(included) < 2 {
		return result
	}

	sampled := strideSample(rows, rowCap)

	for i := 0; i < len(included); i++ {
		for j := i + 1; j < len(included); j++ {
			r := pairwisePearson(sampled, included[i], included[j])
			result.Matrix[i][j] = r
			result.Matrix[j][i] = r
		}
	}
	return result
}

// pairwisePearson filters to rows where both cells hold finite numbers,
// then delegates the coefficient to gonum.
func pairwisePearson(rows []dataset.Row, colX, colY int) float64 {
	var xs, ys []float64
	for _, row := range rows {
		x, okX := finiteValue(row, colX)
		y, okY := finiteValue(row, colY)
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return 0
	}

	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	if r > 1 {
		r = 1
	}
	if r < -1 {
		r = -1
	}
	return r
}

func finiteValue(row dataset.Row, idx int) (float64, bool) {
	if idx >= len(row) {
		return 0, false
	}
	cell := row[idx]
	switch cell.Kind {
	case dataset.CellNumber:
		return cell.Number, true
	case dataset.CellString:
		if v, err := strconv.ParseFloat(cell.Text, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, true
		}
	}
	return 0, false
}

// strideSample picks at most cap rows spread evenly across the input.
func strideSample(rows []dataset.Row, cap int) []dataset.Row {
	if cap <= 0 || len(rows) <= cap {
		return rows
	}
	out := make([]dataset.Row, 0, cap)
	step := float64(len(rows)) / float64(cap)
	for i := 0; i < cap; i++ {
		idx := int(float64(i) * step)
		if idx >= len(rows) {
			break
		}
		out = append(out, rows[idx])
	}
	return out
}
