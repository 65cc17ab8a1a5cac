// Package exporter writes query results as CSV or XLSX.
//
// CSVWriter covers plain and streaming CSV with an optional UTF-8 BOM for
// Excel. WriteXLSX produces a single sheet workbook through excelize.
//
//	w := exporter.NewCSVWriter(logger)
//	err := w.Export(resp, exporter.FormatCSV, ds.Columns, rows, true)
package exporter
