package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"linka/internal/dataprocessing"
)

// DefaultSheet names the worksheet written by WriteXLSX
const DefaultSheet = "Data"

// WriteXLSX writes columns and rows as a single worksheet. Numbers are
// stored as numeric cells so spreadsheets can compute on them.
func WriteXLSX(dst io.Writer, columns []string, rows []dataprocessing.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DefaultSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(DefaultSheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for r, row := range rows {
		cells := make([]interface{}, len(columns))
		for c, col := range columns {
			v := row.Get(col)
			switch v.Kind() {
			case dataprocessing.KindNull:
				cells[c] = nil
			case dataprocessing.KindNumber:
				cells[c], _ = v.Float()
			default:
				cells[c] = v.String()
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(dst); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Export writes rows in the requested format. bom only applies to CSV.
func (w *CSVWriter) Export(dst io.Writer, format Format, columns []string, rows []dataprocessing.Row, bom bool) error {
	switch format {
	case FormatCSV:
		return w.Write(dst, WriteOptions{Headers: columns, Records: Records(columns, rows), BOMPrefix: bom})
	case FormatXLSX:
		return WriteXLSX(dst, columns, rows)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
