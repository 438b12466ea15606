package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// IsExcelFilename reports whether the filename carries an xlsx extension
func IsExcelFilename(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// ConvertToCSV reads an xlsx workbook's first sheet and renders it as CSV
// text, so xlsx uploads flow through the same profiling path as CSV uploads.
func ConvertToCSV(r io.Reader) (string, error) {
	startTime := time.Now()
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("Excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	log.Printf("[ExcelReader] Sheet %s read in %.2fms (%d rows)",
		sheets[0], float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return "", fmt.Errorf("Excel file must have at least a header row and one data row")
	}

	// Pad short rows to the header width; excelize drops trailing empty
	// cells when reading.
	width := len(rows[0])

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	for _, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		} else if len(row) > width {
			row = row[:width]
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to encode row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to encode sheet: %w", err)
	}

	return sb.String(), nil
}
