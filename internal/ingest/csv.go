package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"linka/internal/dataprocessing"
	apierrors "linka/internal/errors"
)

const utf8BOM = "\ufeff"

func parseCSV(ctx context.Context, src Source) (*dataprocessing.Dataset, error) {
	return readDelimited(ctx, src.Reader, ',')
}

// parseTXT sniffs the first line: tab separated when it holds a tab,
// comma separated otherwise
func parseTXT(ctx context.Context, src Source) (*dataprocessing.Dataset, error) {
	br := bufio.NewReader(src.Reader)
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	line := string(first)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	delim := ','
	if strings.Contains(line, "\t") {
		delim = '\t'
	}
	return readDelimited(ctx, br, delim)
}

func readDelimited(ctx context.Context, r io.Reader, delim rune) (*dataprocessing.Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	columns := headerNames(header)

	var rows []dataprocessing.Row
	for line := 2; ; line++ {
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apierrors.NewParsingError(fmt.Sprintf("line %d", line), fmt.Errorf("%w: %v", ErrMalformed, err)).
				WithContext("line", line)
		}
		if blankRecord(record) {
			continue
		}
		row := make(dataprocessing.Row, len(columns))
		for i, col := range columns {
			cell := ""
			if i < len(record) {
				cell = strings.TrimSpace(record[i])
			}
			row[col] = dataprocessing.Text(cell)
		}
		rows = append(rows, row)
	}

	return &dataprocessing.Dataset{Columns: columns, Rows: rows}, nil
}

// headerNames trims headers, names blank ones by position and suffixes
// duplicates so every column is addressable
func headerNames(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		columns[i] = name
	}
	return columns
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
