package dataset

import (
	"encoding/json"
	"strconv"
)

// CellKind discriminates the three value shapes a parsed cell can take.
type CellKind uint8

const (
	CellNull CellKind = iota
	CellNumber
	CellString
)

// Cell is one parsed CSV cell: null, a finite number, or a trimmed string.
type Cell struct {
	Kind   CellKind
	Number float64
	Text   string
}

// Row is one parsed data row, same length as the header sequence.
type Row []Cell

// NullCell returns the null cell value.
func NullCell() Cell {
	return Cell{Kind: CellNull}
}

// NumberCell wraps a finite numeric value.
func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v}
}

// StringCell wraps a trimmed string value.
func StringCell(s string) Cell {
	return Cell{Kind: CellString, Text: s}
}

// IsNull reports whether the cell holds a missing value.
func (c Cell) IsNull() bool {
	return c.Kind == CellNull
}

// String renders the cell to its canonical form. Numbers use the shortest
// representation that round-trips, so 1 and 1.0 collapse to the same key
// for frequency counting and duplicate hashing.
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'g', -1, 64)
	case CellString:
		return c.Text
	default:
		return ""
	}
}

// Render joins a row's canonical cell forms for hashing and display.
func (r Row) Render() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.String()
	}
	return out
}

// MarshalJSON encodes null cells as JSON null, numbers as numbers and
// strings as strings, matching what dashboard clients expect.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellNumber:
		return []byte(strconv.FormatFloat(c.Number, 'g', -1, 64)), nil
	case CellString:
		return json.Marshal(c.Text)
	default:
		return []byte("null"), nil
	}
}
