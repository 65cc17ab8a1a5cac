package dataprocessing

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ValueKind tags the scalar held by a Value
type ValueKind int

const (
	KindNull ValueKind = iota
	KindText
	KindNumber
	KindDate
	KindOpaque
)

// String returns the lowercase name of the kind
func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindOpaque:
		return "opaque"
	default:
		return "null"
	}
}

// Value is a single table cell. Ingested cells start as Text (or Opaque for
// nested data) and are resolved to Number or Date once the column has been
// classified. Resolved values keep their source text for display and search.
type Value struct {
	kind ValueKind
	text string
	num  float64
	t    time.Time
	raw  json.RawMessage
}

// Null returns the empty cell used for derived values without enough history
func Null() Value { return Value{} }

// Text wraps a raw string cell
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number wraps a computed number
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Date wraps a parsed time with the text it was parsed from
func Date(t time.Time, text string) Value { return Value{kind: KindDate, t: t, text: text} }

// Opaque wraps nested data (objects, arrays) as raw JSON
func Opaque(raw json.RawMessage) Value {
	return Value{kind: KindOpaque, raw: append(json.RawMessage(nil), raw...)}
}

// Kind reports what the value holds
func (v Value) Kind() ValueKind { return v.kind }

// Computed reports whether the cell is a number produced by a transform
// rather than parsed from the upload
func (v Value) Computed() bool { return v.kind == KindNumber && v.text == "" }

// IsNull reports whether the cell is empty
func (v Value) IsNull() bool { return v.kind == KindNull }

// String returns the display text of the cell. Numbers resolved from text
// keep the original spelling; computed numbers use the shortest float form.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		if v.text != "" {
			return v.text
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate:
		if v.text != "" {
			return v.text
		}
		return v.t.Format(time.RFC3339)
	case KindOpaque:
		return string(v.raw)
	default:
		return ""
	}
}

// Display returns String truncated to max runes with a trailing ellipsis.
// A max of zero or less disables truncation.
func (v Value) Display(max int) string {
	s := v.String()
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// Float coerces the cell to a finite number
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		return ParseNumber(v.text)
	default:
		return 0, false
	}
}

// Time coerces the cell to a date
func (v Value) Time() (time.Time, bool) {
	switch v.kind {
	case KindDate:
		return v.t, true
	case KindText:
		return ParseDate(v.text)
	default:
		return time.Time{}, false
	}
}

// MarshalJSON encodes numbers as JSON numbers, nested data verbatim and
// everything else as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return []byte(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
	case KindOpaque:
		if len(v.raw) == 0 {
			return []byte("null"), nil
		}
		return v.raw, nil
	default:
		return json.Marshal(v.String())
	}
}

// UnmarshalJSON is the inverse of MarshalJSON. Strings stay Text until the
// column is classified.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*v = Null()
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = Text(s)
	case trimmed[0] == '{' || trimmed[0] == '[':
		*v = Opaque(trimmed)
	case bytes.Equal(trimmed, []byte("true")) || bytes.Equal(trimmed, []byte("false")):
		*v = Text(string(trimmed))
	default:
		f, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return err
		}
		*v = Value{kind: KindNumber, num: f, text: string(trimmed)}
	}
	return nil
}

// ParseNumber parses a trimmed cell as a finite float
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// dateLayouts are tried in order by ParseDate
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"01-02-2006",
	"2006-01",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"Mon, 02 Jan 2006 15:04:05 MST",
	time.RFC1123Z,
	time.ANSIC,
}

// ParseDate parses a trimmed cell with the supported calendar layouts. The
// only bare number accepted is a four digit year; classification still
// prefers numeric when a column passes both tests.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if _, ok := ParseNumber(s); ok {
		if !isYear(s) {
			return time.Time{}, false
		}
		t, err := time.Parse("2006", s)
		return t, err == nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
