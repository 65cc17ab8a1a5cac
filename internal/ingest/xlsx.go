package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"linka/internal/dataprocessing"
	apierrors "linka/internal/errors"
)

// parseXLSX reads the first sheet that has a header row. Trailing empty
// rows are dropped.
func parseXLSX(ctx context.Context, src Source) (*dataprocessing.Dataset, error) {
	f, err := excelize.OpenReader(src.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, apierrors.NewParsingError("unreadable sheet", fmt.Errorf("%w: %v", ErrMalformed, err)).
				WithContext("sheet", sheet)
		}
		if len(rows) == 0 || blankRecord(rows[0]) {
			continue
		}
		return sheetDataset(ctx, rows)
	}
	return nil, ErrEmptyFile
}

func sheetDataset(ctx context.Context, rows [][]string) (*dataprocessing.Dataset, error) {
	columns := headerNames(rows[0])
	out := make([]dataprocessing.Row, 0, len(rows)-1)
	for i, record := range rows[1:] {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if blankRecord(record) {
			continue
		}
		row := make(dataprocessing.Row, len(columns))
		for c, col := range columns {
			cell := ""
			if c < len(record) {
				cell = strings.TrimSpace(record[c])
			}
			row[col] = dataprocessing.Text(cell)
		}
		out = append(out, row)
	}
	return &dataprocessing.Dataset{Columns: columns, Rows: out}, nil
}
