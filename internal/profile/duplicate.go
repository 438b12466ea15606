package profile

import (
	"datalens/domain/core"
	"datalens/domain/dataset"
)

// DuplicateReport carries duplicate counts and whether they came from a
// bounded sample. Sampled counts are a knowing approximation, not an exact
// census; consumers must treat Approximate accordingly.
type DuplicateReport struct {
	Rows    int
	Columns int
	// Inspected is how many rows the counts were computed over.
	Inspected   int
	Approximate bool
}

// DetectDuplicates counts duplicate rows and duplicate columns over at
// most sampleCap rows.
func DetectDuplicates(rows []dataset.Row, columnCount, sampleCap int) DuplicateReport {
	report := DuplicateReport{}

	inspect := rows
	if sampleCap > 0 && len(rows) > sampleCap {
		inspect = rows[:sampleCap]
		report.Approximate = true
	}
	report.Inspected = len(inspect)

	report.Rows = duplicateRowCount(inspect)
	report.Columns = duplicateColumnCount(inspect, columnCount)
	return report
}

// duplicateRowCount fingerprints each row and counts collisions against a
// running set.
func duplicateRowCount(rows []dataset.Row) int {
	seen := make(map[core.RowHash]bool, len(rows))
	count := 0
	for _, row := range rows {
		h := core.NewRowHash(row.Render())
		if seen[h] {
			count++
			continue
		}
		seen[h] = true
	}
	return count
}

// duplicateColumnCount compares every unordered column pair across the
// sampled rows. A column is counted as duplicate at most once: the scan for
// column i stops at its first matching partner.
func duplicateColumnCount(rows []dataset.Row, columnCount int) int {
	count := 0
	for i := 0; i < columnCount; i++ {
		for j := i + 1; j < columnCount; j++ {
			if columnsEqual(rows, i, j) {
				count++
				break
			}
		}
	}
	return count
}

func columnsEqual(rows []dataset.Row, i, j int) bool {
	if len(rows) == 0 {
		return false
	}
	for _, row := range rows {
		if i >= len(row) || j >= len(row) {
			return false
		}
		if row[i].String() != row[j].String() {
			return false
		}
	}
	return true
}
