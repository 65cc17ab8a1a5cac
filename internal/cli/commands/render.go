package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"linka/internal/dataprocessing"
	"linka/internal/exporter"
)

// OutputFormat selects how command results are printed
type OutputFormat string

const (
	OutputTable    OutputFormat = "table"
	OutputJSON     OutputFormat = "json"
	OutputCSV      OutputFormat = "csv"
	OutputMarkdown OutputFormat = "markdown"
)

// maxCellWidth keeps wide text columns (SVG bodies, JSON blobs) from
// wrapping the terminal table
const maxCellWidth = 40

func renderRows(w io.Writer, format OutputFormat, columns []string, rows []dataprocessing.Row) error {
	switch format {
	case OutputJSON:
		out := make([]map[string]dataprocessing.Value, len(rows))
		for i, row := range rows {
			m := make(map[string]dataprocessing.Value, len(columns))
			for _, col := range columns {
				m[col] = row.Get(col)
			}
			out[i] = m
		}
		return renderJSON(w, out)
	case OutputCSV:
		sw, err := exporter.NewStreamWriter(w, columns, false)
		if err != nil {
			return err
		}
		for _, record := range exporter.Records(columns, rows) {
			if err := sw.WriteRecord(record); err != nil {
				return err
			}
		}
		return sw.Flush()
	}

	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := newTable(w, columns...)
	limit := maxCellWidth
	if format == OutputMarkdown {
		limit = 0
	}
	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i, col := range columns {
			r[i] = row.Get(col).Display(limit)
		}
		t.AppendRow(r)
	}
	render(t, format)
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func newTable(w io.Writer, headers ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)
	return t
}

func render(t table.Writer, format OutputFormat) {
	if format == OutputMarkdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
