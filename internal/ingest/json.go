package ingest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"linka/internal/dataprocessing"
)

// parseJSON flattens a JSON document into rows.
//
//   - an array becomes one row per element
//   - an object holding arrays becomes one row per array index, with the
//     object's other fields repeated on every row
//   - any other object becomes a single row
//
// Nested objects are lifted into dotted columns ("address.city"). Arrays that
// remain after flattening are kept as opaque JSON. Object keys are visited in
// sorted order, and every row is padded to the full column set with "".
func parseJSON(ctx context.Context, src Source) (*dataprocessing.Dataset, error) {
	raw, err := io.ReadAll(src.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyFile
	}

	doc, err := oj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if src.RecordsPath != "" {
		path, err := jp.ParseString(src.RecordsPath)
		if err != nil {
			return nil, fmt.Errorf("invalid records path %q: %w", src.RecordsPath, err)
		}
		found := path.Get(doc)
		switch len(found) {
		case 0:
			return nil, fmt.Errorf("%w: records path %q matched nothing", ErrEmptyFile, src.RecordsPath)
		case 1:
			doc = found[0]
		default:
			doc = found
		}
	}

	b := newRowBuilder()
	for i, rec := range recordsOf(doc) {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		b.add(rec)
	}
	if len(b.rows) == 0 {
		return nil, ErrEmptyFile
	}
	return b.dataset(), nil
}

// recordsOf expands the top level value into flat records
func recordsOf(doc any) []map[string]any {
	switch v := doc.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, flatten("", obj))
				continue
			}
			out = append(out, map[string]any{"value": item})
		}
		return out
	case map[string]any:
		return expandObject(v)
	case nil:
		return nil
	default:
		return []map[string]any{{"value": v}}
	}
}

// expandObject turns an object with array fields into one record per index
func expandObject(obj map[string]any) []map[string]any {
	var arrayKeys []string
	maxLen := 0
	for _, k := range sortedKeys(obj) {
		if arr, ok := obj[k].([]any); ok {
			arrayKeys = append(arrayKeys, k)
			if len(arr) > maxLen {
				maxLen = len(arr)
			}
		}
	}
	if len(arrayKeys) == 0 || maxLen == 0 {
		return []map[string]any{flatten("", obj)}
	}

	base := make(map[string]any, len(obj))
	for k, v := range obj {
		if _, ok := v.([]any); !ok {
			base[k] = v
		}
	}
	flatBase := flatten("", base)

	out := make([]map[string]any, 0, maxLen)
	for i := 0; i < maxLen; i++ {
		rec := make(map[string]any, len(flatBase)+len(arrayKeys))
		for k, v := range flatBase {
			rec[k] = v
		}
		for _, key := range arrayKeys {
			arr := obj[key].([]any)
			if i >= len(arr) {
				continue
			}
			if item, ok := arr[i].(map[string]any); ok {
				for k, v := range flatten("", item) {
					rec[k] = v
				}
				continue
			}
			rec[key] = arr[i]
		}
		out = append(out, rec)
	}
	return out
}

// flatten lifts nested objects into dotted keys
func flatten(prefix string, obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok && len(nested) > 0 {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}

// rowBuilder collects records and tracks first-seen column order
type rowBuilder struct {
	columns []string
	seen    map[string]bool
	rows    []dataprocessing.Row
}

func newRowBuilder() *rowBuilder {
	return &rowBuilder{seen: make(map[string]bool)}
}

func (b *rowBuilder) add(rec map[string]any) {
	row := make(dataprocessing.Row, len(rec))
	for _, k := range sortedKeys(rec) {
		if !b.seen[k] {
			b.seen[k] = true
			b.columns = append(b.columns, k)
		}
		row[k] = cellOf(rec[k])
	}
	b.rows = append(b.rows, row)
}

func (b *rowBuilder) dataset() *dataprocessing.Dataset {
	for _, row := range b.rows {
		for _, col := range b.columns {
			if _, ok := row[col]; !ok {
				row[col] = dataprocessing.Text("")
			}
		}
	}
	return &dataprocessing.Dataset{Columns: b.columns, Rows: b.rows}
}

// cellOf converts a decoded JSON value into a cell
func cellOf(v any) dataprocessing.Value {
	switch t := v.(type) {
	case nil:
		return dataprocessing.Text("")
	case string:
		return dataprocessing.Text(t)
	case bool:
		return dataprocessing.Text(strconv.FormatBool(t))
	case int64:
		return dataprocessing.Text(strconv.FormatInt(t, 10))
	case float64:
		return dataprocessing.Text(strconv.FormatFloat(t, 'f', -1, 64))
	case []any, map[string]any:
		return dataprocessing.Opaque([]byte(oj.JSON(t, &oj.Options{Sort: true})))
	default:
		return dataprocessing.Text(fmt.Sprint(t))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
