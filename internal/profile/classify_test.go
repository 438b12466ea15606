package profile

import (
	"fmt"
	"testing"

	"datalens/domain/dataset"

	"github.com/stretchr/testify/assert"
)

func column(cells ...dataset.Cell) []dataset.Row {
	rows := make([]dataset.Row, len(cells))
	for i, c := range cells {
		rows[i] = dataset.Row{c}
	}
	return rows
}

func TestClassifyCoarse(t *testing.T) {
	classifier := NewClassifier(GranularityCoarse)

	tests := []struct {
		name     string
		rows     []dataset.Row
		expected dataset.ColumnType
	}{
		{
			name:     "all numeric",
			rows:     column(dataset.NumberCell(1), dataset.NumberCell(2), dataset.NumberCell(3)),
			expected: dataset.TypeQuantitative,
		},
		{
			name:     "all strings",
			rows:     column(dataset.StringCell("a"), dataset.StringCell("b"), dataset.StringCell("c")),
			expected: dataset.TypeQualitative,
		},
		{
			name: "numeric-parseable strings count as numeric",
			rows: column(dataset.StringCell("1"), dataset.StringCell("2"), dataset.StringCell("x")),
			// 2/3 >= 0.6
			expected: dataset.TypeQuantitative,
		},
		{
			name: "below 60 percent numeric",
			rows: column(dataset.NumberCell(1), dataset.StringCell("a"), dataset.StringCell("b"),
				dataset.StringCell("c"), dataset.NumberCell(2)),
			expected: dataset.TypeQualitative,
		},
		{
			name:     "all null",
			rows:     column(dataset.NullCell(), dataset.NullCell()),
			expected: dataset.TypeQualitative,
		},
		{
			name:     "nulls are excluded from the ratio",
			rows:     column(dataset.NullCell(), dataset.NullCell(), dataset.NumberCell(5)),
			expected: dataset.TypeQuantitative,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifier.Classify(tt.rows, 0))
		})
	}
}

func TestClassifyFine(t *testing.T) {
	classifier := NewClassifier(GranularityFine)

	t.Run("numeric", func(t *testing.T) {
		rows := column(dataset.NumberCell(10), dataset.NumberCell(20), dataset.NumberCell(30),
			dataset.NumberCell(40), dataset.NumberCell(50))
		assert.Equal(t, dataset.TypeNumeric, classifier.Classify(rows, 0))
	})

	t.Run("boolean strings", func(t *testing.T) {
		rows := column(dataset.StringCell("true"), dataset.StringCell("false"),
			dataset.StringCell("yes"), dataset.StringCell("no"), dataset.StringCell("Y"))
		assert.Equal(t, dataset.TypeBoolean, classifier.Classify(rows, 0))
	})

	t.Run("datetime", func(t *testing.T) {
		rows := column(dataset.StringCell("2024-01-15"), dataset.StringCell("2024-02-20"),
			dataset.StringCell("2024-03-25"), dataset.StringCell("2024-04-30"))
		assert.Equal(t, dataset.TypeDatetime, classifier.Classify(rows, 0))
	})

	t.Run("categorical by low unique ratio", func(t *testing.T) {
		var cells []dataset.Cell
		for i := 0; i < 50; i++ {
			cells = append(cells, dataset.StringCell([]string{"red", "green", "blue"}[i%3]))
		}
		assert.Equal(t, dataset.TypeCategorical, classifier.Classify(column(cells...), 0))
	})

	t.Run("free text", func(t *testing.T) {
		var cells []dataset.Cell
		for i := 0; i < 20; i++ {
			cells = append(cells, dataset.StringCell(fmt.Sprintf("sentence %d words", i)))
		}
		assert.Equal(t, dataset.TypeText, classifier.Classify(column(cells...), 0))
	})

	t.Run("empty column", func(t *testing.T) {
		assert.Equal(t, dataset.TypeText, classifier.Classify(column(dataset.NullCell()), 0))
	})
}

func TestCellBooleanLike(t *testing.T) {
	assert.True(t, cellBooleanLike(dataset.StringCell("TRUE")))
	assert.True(t, cellBooleanLike(dataset.NumberCell(0)))
	assert.True(t, cellBooleanLike(dataset.NumberCell(1)))
	assert.False(t, cellBooleanLike(dataset.NumberCell(2)))
	assert.False(t, cellBooleanLike(dataset.StringCell("maybe")))
}

func TestLooksLikeDate(t *testing.T) {
	assert.True(t, looksLikeDate("2024-01-15"))
	assert.True(t, looksLikeDate("2024-01-15T10:30:00"))
	assert.True(t, looksLikeDate("1/15/2024"))
	assert.True(t, looksLikeDate("January 15, 2024"))
	assert.False(t, looksLikeDate("not a date"))
	assert.False(t, looksLikeDate("2024"))
}
