package exporter

import (
	"fmt"
	"strings"

	"linka/internal/dataprocessing"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat resolves a client supplied format name. An empty name means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type served for the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Extension returns the file extension including the dot
func (f Format) Extension() string {
	return "." + string(f)
}

// formatFloat formats a float64 value for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	// 13.4 is written as 13.40
	return fmt.Sprintf("%.2f", f)
}

// formatCell renders one cell. Parsed text is written back as it was read;
// computed numbers use two decimals.
func formatCell(v dataprocessing.Value) string {
	if v.Computed() {
		f, _ := v.Float()
		return formatFloat(f)
	}
	return v.String()
}

// Records converts rows into CSV records in column order
func Records(columns []string, rows []dataprocessing.Row) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		record := make([]string, len(columns))
		for c, col := range columns {
			record[c] = formatCell(row.Get(col))
		}
		out[i] = record
	}
	return out
}
