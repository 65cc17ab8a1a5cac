package dataprocessing

import (
	"math"

	"github.com/shopspring/decimal"
)

// Row maps column names to cells. Rows are treated as immutable: every
// operation in this package returns copies.
type Row map[string]Value

// Clone returns a shallow copy of the row
func (r Row) Clone() Row {
	out := make(Row, len(r)+4)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Get returns the cell for column, or Null when it is absent
func (r Row) Get(column string) Value {
	if v, ok := r[column]; ok {
		return v
	}
	return Null()
}

// Dataset is a parsed upload: the column order, the rows and the columns the
// ingester wants forced to categorical (for example an SVG body).
type Dataset struct {
	Columns          []string `json:"columns"`
	Rows             []Row    `json:"rows"`
	FileType         string   `json:"file_type"`
	ForceCategorical []string `json:"force_categorical,omitempty"`
}

// RowCount returns the number of rows
func (d *Dataset) RowCount() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// HasColumn reports whether the dataset declares column
func (d *Dataset) HasColumn(column string) bool {
	for _, c := range d.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// RowsFromStrings builds Text rows from string maps. Handy for callers that
// already hold flat records.
func RowsFromStrings(records []map[string]string) []Row {
	rows := make([]Row, len(records))
	for i, rec := range records {
		row := make(Row, len(rec))
		for k, v := range rec {
			row[k] = Text(v)
		}
		rows[i] = row
	}
	return rows
}

// round2 rounds half away from zero to two decimal places
func round2(f float64) float64 {
	return roundTo(f, 2)
}

// roundTo rounds half away from zero. Non-finite input is returned as is.
func roundTo(f float64, places int32) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	out, _ := decimal.NewFromFloat(f).Round(places).Float64()
	return out
}
