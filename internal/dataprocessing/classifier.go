package dataprocessing

import "encoding/json"

// ColumnKind is the semantic kind assigned to a column
type ColumnKind string

const (
	ColumnNumeric     ColumnKind = "numeric"
	ColumnDate        ColumnKind = "date"
	ColumnCategorical ColumnKind = "categorical"
)

const (
	// ClassifySampleSize is the number of leading rows inspected per column
	ClassifySampleSize = 100
	// ClassifyThreshold is the share of sampled cells that must pass a test
	ClassifyThreshold = 0.8
)

// ClassifyOptions carries caller overrides
type ClassifyOptions struct {
	// ForceCategorical lists columns that skip sampling entirely
	ForceCategorical []string
}

// Classification partitions a column set into numeric, date and categorical
// columns. Each list keeps the input column order.
type Classification struct {
	Numeric     []string `json:"numeric"`
	Date        []string `json:"date"`
	Categorical []string `json:"categorical"`

	kinds map[string]ColumnKind
}

// NewClassification builds a classification from explicit lists, for callers
// that already know the column kinds.
func NewClassification(numeric, date, categorical []string) Classification {
	c := Classification{
		Numeric:     append([]string{}, numeric...),
		Date:        append([]string{}, date...),
		Categorical: append([]string{}, categorical...),
	}
	c.index()
	return c
}

// Classify tags every column by sampling the first ClassifySampleSize rows.
// A column is numeric when more than 80% of the sample parses as a finite
// number, otherwise date when more than 80% parses as a date, otherwise
// categorical. An empty row set makes every column categorical.
func Classify(columns []string, rows []Row, opts ClassifyOptions) Classification {
	forced := make(map[string]bool, len(opts.ForceCategorical))
	for _, c := range opts.ForceCategorical {
		forced[c] = true
	}

	sample := rows
	if len(sample) > ClassifySampleSize {
		sample = sample[:ClassifySampleSize]
	}

	c := Classification{
		Numeric:     []string{},
		Date:        []string{},
		Categorical: []string{},
		kinds:       make(map[string]ColumnKind, len(columns)),
	}
	for _, col := range columns {
		if _, seen := c.kinds[col]; seen {
			continue
		}
		kind := ColumnCategorical
		if !forced[col] {
			kind = classifyColumn(col, sample)
		}
		c.add(col, kind)
	}
	return c
}

func classifyColumn(column string, sample []Row) ColumnKind {
	if len(sample) == 0 {
		return ColumnCategorical
	}
	var numeric, dates int
	for _, row := range sample {
		v := row.Get(column)
		if _, ok := v.Float(); ok {
			numeric++
		}
		if _, ok := v.Time(); ok {
			dates++
		}
	}
	limit := ClassifyThreshold * float64(len(sample))
	switch {
	case float64(numeric) > limit:
		return ColumnNumeric
	case float64(dates) > limit:
		return ColumnDate
	default:
		return ColumnCategorical
	}
}

func (c *Classification) add(column string, kind ColumnKind) {
	if c.kinds == nil {
		c.kinds = make(map[string]ColumnKind)
	}
	c.kinds[column] = kind
	switch kind {
	case ColumnNumeric:
		c.Numeric = append(c.Numeric, column)
	case ColumnDate:
		c.Date = append(c.Date, column)
	default:
		c.Categorical = append(c.Categorical, column)
	}
}

// KindOf returns the kind of column. Unknown columns are categorical.
func (c Classification) KindOf(column string) ColumnKind {
	if c.kinds != nil {
		if k, ok := c.kinds[column]; ok {
			return k
		}
		return ColumnCategorical
	}
	for _, col := range c.Numeric {
		if col == column {
			return ColumnNumeric
		}
	}
	for _, col := range c.Date {
		if col == column {
			return ColumnDate
		}
	}
	return ColumnCategorical
}

// UnmarshalJSON decodes the three lists and rebuilds the lookup index
func (c *Classification) UnmarshalJSON(data []byte) error {
	var wire struct {
		Numeric     []string `json:"numeric"`
		Date        []string `json:"date"`
		Categorical []string `json:"categorical"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	c.Numeric, c.Date, c.Categorical = wire.Numeric, wire.Date, wire.Categorical
	c.index()
	return nil
}

// index rebuilds the lookup. Numeric wins over date over categorical when a
// decoded classification lists a column twice.
func (c *Classification) index() {
	c.kinds = make(map[string]ColumnKind, len(c.Numeric)+len(c.Date)+len(c.Categorical))
	for _, col := range c.Categorical {
		c.kinds[col] = ColumnCategorical
	}
	for _, col := range c.Date {
		c.kinds[col] = ColumnDate
	}
	for _, col := range c.Numeric {
		c.kinds[col] = ColumnNumeric
	}
}

// Columns returns every classified column
func (c Classification) Columns() []string {
	out := make([]string, 0, len(c.Numeric)+len(c.Date)+len(c.Categorical))
	out = append(out, c.Numeric...)
	out = append(out, c.Date...)
	return append(out, c.Categorical...)
}

// Resolve converts the cells of numeric and date columns to tagged Number
// and Date values. Cells that do not parse stay as they are, so comparison
// sites can still exclude them.
func (c Classification) Resolve(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		resolved := row.Clone()
		for col, v := range row {
			if v.Kind() != KindText {
				continue
			}
			switch c.KindOf(col) {
			case ColumnNumeric:
				if f, ok := v.Float(); ok {
					resolved[col] = Value{kind: KindNumber, num: f, text: v.text}
				}
			case ColumnDate:
				if t, ok := v.Time(); ok {
					resolved[col] = Date(t, v.text)
				}
			}
		}
		out[i] = resolved
	}
	return out
}
