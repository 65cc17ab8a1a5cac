package dataprocessing

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Filter operators. Text operators compare case-insensitively; numeric and
// date operators compare parsed values and exclude cells that do not parse.
const (
	OpContains   = "contains"
	OpEquals     = "equals"
	OpStartsWith = "starts with"
	OpEndsWith   = "ends with"
	OpIsEmpty    = "is empty"
	OpIsNotEmpty = "is not empty"

	OpEq      = "="
	OpGt      = ">"
	OpLt      = "<"
	OpGte     = ">="
	OpLte     = "<="
	OpBetween = "between"

	OpBefore = "before"
	OpAfter  = "after"
)

// Operators lists the vocabulary offered for each column kind
var Operators = map[ColumnKind][]string{
	ColumnCategorical: {OpContains, OpEquals, OpStartsWith, OpEndsWith, OpIsEmpty, OpIsNotEmpty},
	ColumnNumeric:     {OpEq, OpGt, OpLt, OpGte, OpLte, OpBetween},
	ColumnDate:        {OpEq, OpBefore, OpAfter, OpBetween},
}

// Filter is one rule on a column. Value2 is only read by between.
type Filter struct {
	Operator string `json:"operator"`
	Value    string `json:"value"`
	Value2   string `json:"value2,omitempty"`
}

// FilterSet holds the active filters keyed by column. Every filter of every
// column must pass for a row to stay visible.
type FilterSet map[string][]Filter

// Add appends a filter to column
func (fs FilterSet) Add(column string, f Filter) {
	fs[column] = append(fs[column], f)
}

// Remove drops the i-th filter of column. Out of range indexes are ignored.
func (fs FilterSet) Remove(column string, i int) {
	list := fs[column]
	if i < 0 || i >= len(list) {
		return
	}
	list = append(list[:i:i], list[i+1:]...)
	if len(list) == 0 {
		delete(fs, column)
		return
	}
	fs[column] = list
}

// ClearColumn drops every filter on column
func (fs FilterSet) ClearColumn(column string) {
	delete(fs, column)
}

// ClearAll drops every filter
func (fs FilterSet) ClearAll() {
	for k := range fs {
		delete(fs, k)
	}
}

// Len returns the number of filters across all columns
func (fs FilterSet) Len() int {
	n := 0
	for _, list := range fs {
		n += len(list)
	}
	return n
}

// FilterError describes a filter that can never match
type FilterError struct {
	Column   string
	Index    int
	Operator string
	Err      error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %d on column %q (%q): %v", e.Index, e.Column, e.Operator, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// ValidateFilters reports filters whose operator is unknown or whose operand
// is missing. Filters without an operator are not configured yet and pass.
func ValidateFilters(fs FilterSet) []error {
	var errs []error
	for column, list := range fs {
		for i, f := range list {
			if f.Operator == "" {
				continue
			}
			if !knownOperator(f.Operator) {
				errs = append(errs, &FilterError{Column: column, Index: i, Operator: f.Operator, Err: ErrUnknownOperator})
				continue
			}
			if needsOperand(f.Operator) && strings.TrimSpace(f.Value) == "" {
				errs = append(errs, &FilterError{Column: column, Index: i, Operator: f.Operator, Err: ErrMissingOperand})
				continue
			}
			if f.Operator == OpBetween && strings.TrimSpace(f.Value2) == "" {
				errs = append(errs, &FilterError{Column: column, Index: i, Operator: f.Operator, Err: ErrMissingOperand})
			}
		}
	}
	return errs
}

func knownOperator(op string) bool {
	switch op {
	case OpContains, OpEquals, OpStartsWith, OpEndsWith, OpIsEmpty, OpIsNotEmpty,
		OpEq, OpGt, OpLt, OpGte, OpLte, OpBetween, OpBefore, OpAfter:
		return true
	}
	return false
}

func needsOperand(op string) bool {
	return op != OpIsEmpty && op != OpIsNotEmpty
}

// matcher evaluates filters for one query. It owns a case folder, which is
// not safe for concurrent use.
type matcher struct {
	fold cases.Caser
	c    Classification
}

func newMatcher(c Classification) *matcher {
	return &matcher{fold: cases.Fold(), c: c}
}

func (m *matcher) folded(s string) string {
	return m.fold.String(s)
}

// matchRow applies every filter of every column
func (m *matcher) matchRow(row Row, fs FilterSet) bool {
	for column, list := range fs {
		kind := m.c.KindOf(column)
		cell := row.Get(column)
		for _, f := range list {
			if !m.match(cell, f, kind) {
				return false
			}
		}
	}
	return true
}

func (m *matcher) match(cell Value, f Filter, kind ColumnKind) bool {
	switch f.Operator {
	case "":
		return true
	case OpContains:
		return strings.Contains(m.folded(cell.String()), m.folded(f.Value))
	case OpEquals:
		return m.folded(cell.String()) == m.folded(f.Value)
	case OpStartsWith:
		return strings.HasPrefix(m.folded(cell.String()), m.folded(f.Value))
	case OpEndsWith:
		return strings.HasSuffix(m.folded(cell.String()), m.folded(f.Value))
	case OpIsEmpty:
		return strings.TrimSpace(cell.String()) == ""
	case OpIsNotEmpty:
		return strings.TrimSpace(cell.String()) != ""
	case OpEq:
		switch kind {
		case ColumnDate:
			return compareDate(cell, f.Value, func(a, b time.Time) bool { return sameDay(a, b) })
		case ColumnNumeric:
			return compareNumber(cell, f.Value, func(a, b float64) bool { return a == b })
		default:
			return m.folded(cell.String()) == m.folded(f.Value)
		}
	case OpGt:
		return compareNumber(cell, f.Value, func(a, b float64) bool { return a > b })
	case OpLt:
		return compareNumber(cell, f.Value, func(a, b float64) bool { return a < b })
	case OpGte:
		return compareNumber(cell, f.Value, func(a, b float64) bool { return a >= b })
	case OpLte:
		return compareNumber(cell, f.Value, func(a, b float64) bool { return a <= b })
	case OpBefore:
		return compareDate(cell, f.Value, func(a, b time.Time) bool { return a.Before(b) })
	case OpAfter:
		return compareDate(cell, f.Value, func(a, b time.Time) bool { return a.After(b) })
	case OpBetween:
		switch kind {
		case ColumnNumeric:
			return compareNumber(cell, f.Value, func(a, lo float64) bool { return a >= lo }) &&
				compareNumber(cell, f.Value2, func(a, hi float64) bool { return a <= hi })
		case ColumnDate:
			// bounds are inclusive whole days, matching = on dates
			return compareDate(cell, f.Value, func(a, lo time.Time) bool { return !a.Before(lo) || sameDay(a, lo) }) &&
				compareDate(cell, f.Value2, func(a, hi time.Time) bool { return !a.After(hi) || sameDay(a, hi) })
		default:
			s := m.folded(cell.String())
			return s >= m.folded(f.Value) && s <= m.folded(f.Value2)
		}
	default:
		return false
	}
}

func compareNumber(cell Value, operand string, cmp func(a, b float64) bool) bool {
	a, ok := cell.Float()
	if !ok {
		return false
	}
	b, ok := ParseNumber(operand)
	if !ok {
		return false
	}
	return cmp(a, b)
}

func compareDate(cell Value, operand string, cmp func(a, b time.Time) bool) bool {
	a, ok := cell.Time()
	if !ok {
		return false
	}
	b, ok := ParseDate(operand)
	if !ok {
		return false
	}
	return cmp(a, b)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// matchSearch reports whether any cell contains the folded needle
func (m *matcher) matchSearch(row Row, needle string) bool {
	for _, v := range row {
		if strings.Contains(m.folded(v.String()), needle) {
			return true
		}
	}
	return false
}
