package profile

import (
	"math"
	"strconv"
	"strings"

	"datalens/domain/dataset"
)

// ParseResult carries the parsed rows plus the sampling bookkeeping the
// dashboard needs: TotalRows is the true data-line count of the file, which
// may exceed len(Rows) when sampling kicked in.
type ParseResult struct {
	Rows      []dataset.Row
	TotalRows int
	Sampled   bool
}

// ParseRows parses every data line of text (the header line is skipped by
// the caller) into typed cells. Lines whose cell count does not match
// columnCount are discarded silently. When the file holds more data lines
// than sampleCap, a deterministic head + strided-middle + tail cross-section
// of sampleCap lines is parsed instead of the whole file; TotalRows still
// reports the full count.
func ParseRows(text string, sep rune, columnCount, sampleCap int) ParseResult {
	lines := dataLines(text)
	result := ParseResult{TotalRows: len(lines)}

	selected := lines
	if sampleCap > 0 && len(lines) > sampleCap {
		selected = sampleCrossSection(lines, sampleCap)
		result.Sampled = true
	}

	rows := make([]dataset.Row, 0, len(selected))
	for _, line := range selected {
		cells := strings.Split(line, string(sep))
		if len(cells) != columnCount {
			// Malformed rows are dropped, not reported.
			continue
		}
		row := make(dataset.Row, len(cells))
		for i, cell := range cells {
			row[i] = CoerceCell(cell)
		}
		rows = append(rows, row)
	}
	result.Rows = rows
	return result
}

// CoerceCell converts one raw cell to its typed value: empty, "na" and
// "null" (case-insensitive) become null; finite numbers become numbers;
// everything else stays a trimmed, unquoted string.
func CoerceCell(raw string) dataset.Cell {
	s := unquoteCell(strings.TrimSpace(raw))
	if s == "" {
		return dataset.NullCell()
	}
	switch strings.ToLower(s) {
	case "na", "null":
		return dataset.NullCell()
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return dataset.NumberCell(v)
		}
	}
	return dataset.StringCell(s)
}

// dataLines returns every non-empty line after the header line.
func dataLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for i, line := range raw {
		if i == 0 {
			continue // header
		}
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// sampleCrossSection keeps the first quarter of the budget from the head,
// stride-samples half across the middle, and keeps the last quarter from
// the tail. Boundary rows often concentrate export artifacts, so both ends
// stay represented alongside interior coverage.
func sampleCrossSection(lines []string, budget int) []string {
	headN := budget / 4
	tailN := budget / 4
	midN := budget - headN - tailN

	out := make([]string, 0, budget)
	out = append(out, lines[:headN]...)

	middle := lines[headN : len(lines)-tailN]
	if midN > 0 && len(middle) > 0 {
		step := float64(len(middle)) / float64(midN)
		if step < 1 {
			step = 1
		}
		for i := 0; i < midN; i++ {
			idx := int(float64(i) * step)
			if idx >= len(middle) {
				break
			}
			out = append(out, middle[idx])
		}
	}

	out = append(out, lines[len(lines)-tailN:]...)
	return out
}
