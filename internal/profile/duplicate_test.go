package profile

import (
	"testing"

	"datalens/domain/dataset"

	"github.com/stretchr/testify/assert"
)

func parseFixture(t *testing.T, text string, columnCount int) []dataset.Row {
	t.Helper()
	result := ParseRows(text, ',', columnCount, 0)
	return result.Rows
}

func TestDetectDuplicateRows(t *testing.T) {
	rows := parseFixture(t, "a,b\n1,2\n3,4\n1,2\n", 2)
	report := DetectDuplicates(rows, 2, 0)

	assert.Equal(t, 1, report.Rows)
	assert.Equal(t, 3, report.Inspected)
	assert.False(t, report.Approximate)
}

func TestDetectDuplicateRowsTriple(t *testing.T) {
	rows := parseFixture(t, "a,b\n1,2\n1,2\n1,2\n", 2)
	report := DetectDuplicates(rows, 2, 0)

	// Two repeats of the first occurrence.
	assert.Equal(t, 2, report.Rows)
}

func TestDuplicateRowsNumericEquivalence(t *testing.T) {
	// 1 and 1.0 render to the same canonical form, so the rows collide.
	rows := parseFixture(t, "a,b\n1,x\n1.0,x\n", 2)
	report := DetectDuplicates(rows, 2, 0)
	assert.Equal(t, 1, report.Rows)
}

func TestDetectDuplicateColumns(t *testing.T) {
	rows := parseFixture(t, "a,b,c\n1,1,2\n3,3,4\n5,5,6\n", 3)
	report := DetectDuplicates(rows, 3, 0)

	// Columns a and b match; the pair counts once.
	assert.Equal(t, 1, report.Columns)
	assert.Equal(t, 0, report.Rows)
}

func TestDuplicateColumnsFirstMatchWins(t *testing.T) {
	// Three identical columns: a matches b (one), then b matches c (one).
	rows := parseFixture(t, "a,b,c\n1,1,1\n2,2,2\n", 3)
	report := DetectDuplicates(rows, 3, 0)
	assert.Equal(t, 2, report.Columns)
}

func TestDetectDuplicatesSampling(t *testing.T) {
	var rows []dataset.Row
	for i := 0; i < 100; i++ {
		rows = append(rows, dataset.Row{dataset.NumberCell(float64(i % 10))})
	}
	report := DetectDuplicates(rows, 1, 20)

	assert.True(t, report.Approximate)
	// Only the first 20 rows are inspected: 10 uniques, 10 repeats.
	assert.Equal(t, 10, report.Rows)
	assert.Equal(t, 20, report.Inspected)
}

func TestDetectDuplicatesEmpty(t *testing.T) {
	report := DetectDuplicates(nil, 0, 100)
	assert.Equal(t, 0, report.Rows)
	assert.Equal(t, 0, report.Columns)
	assert.False(t, report.Approximate)
}
