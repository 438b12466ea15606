package profile

import (
	"fmt"
	"strings"
	"testing"

	"datalens/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRowsBasic(t *testing.T) {
	text := "a,b,c\n1,two,3.5\n4,five,6\n"
	result := ParseRows(text, ',', 3, 0)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, 2, result.TotalRows)
	assert.False(t, result.Sampled)

	assert.Equal(t, dataset.NumberCell(1), result.Rows[0][0])
	assert.Equal(t, dataset.StringCell("two"), result.Rows[0][1])
	assert.Equal(t, dataset.NumberCell(3.5), result.Rows[0][2])
}

func TestParseRowsDiscardsMismatchedRows(t *testing.T) {
	text := "a,b\n1,2\n1,2,3\nonly-one\n4,5\n"
	result := ParseRows(text, ',', 2, 0)

	// Mismatched rows are dropped silently but still counted in the total.
	require.Len(t, result.Rows, 2)
	assert.Equal(t, 4, result.TotalRows)
}

func TestParseRowsSampling(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("v\n")
	total := 1000
	for i := 0; i < total; i++ {
		fmt.Fprintf(&sb, "%d\n", i)
	}

	budget := 100
	result := ParseRows(sb.String(), ',', 1, budget)

	assert.True(t, result.Sampled)
	assert.Equal(t, total, result.TotalRows)
	assert.LessOrEqual(t, len(result.Rows), budget)

	// Head and tail must both be represented.
	assert.Equal(t, dataset.NumberCell(0), result.Rows[0][0])
	assert.Equal(t, dataset.NumberCell(float64(total-1)), result.Rows[len(result.Rows)-1][0])
}

func TestParseRowsSamplingDeterministic(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("v\n")
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&sb, "%d\n", i)
	}

	first := ParseRows(sb.String(), ',', 1, 50)
	second := ParseRows(sb.String(), ',', 1, 50)
	assert.Equal(t, first.Rows, second.Rows)
}

func TestCoerceCell(t *testing.T) {
	tests := []struct {
		raw      string
		expected dataset.Cell
	}{
		{"", dataset.NullCell()},
		{"   ", dataset.NullCell()},
		{"na", dataset.NullCell()},
		{"NA", dataset.NullCell()},
		{"Null", dataset.NullCell()},
		{"42", dataset.NumberCell(42)},
		{" 3.14 ", dataset.NumberCell(3.14)},
		{"-1e3", dataset.NumberCell(-1000)},
		{"hello", dataset.StringCell("hello")},
		{`"quoted"`, dataset.StringCell("quoted")},
		{`"7"`, dataset.NumberCell(7)},
		{"NaN", dataset.StringCell("NaN")},
		{"Inf", dataset.StringCell("Inf")},
		{"nan", dataset.StringCell("nan")},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, CoerceCell(tt.raw))
		})
	}
}
