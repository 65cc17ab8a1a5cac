package dataprocessing

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{in: "42", want: 42, ok: true},
		{in: " -3.5 ", want: -3.5, ok: true},
		{in: "1e3", want: 1000, ok: true},
		{in: "", ok: false},
		{in: "12abc", ok: false},
		{in: "NaN", ok: false},
		{in: "Inf", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	valid := []string{
		"2024-01-15",
		"2024-01-15T10:30:00Z",
		"2024-01-15 10:30:00",
		"2024/01/15",
		"01/15/2024",
		"Jan 15, 2024",
		"15 Jan 2024",
		"January 15, 2024",
	}
	for _, s := range valid {
		got, ok := ParseDate(s)
		require.True(t, ok, s)
		assert.Equal(t, 2024, got.Year(), s)
		assert.Equal(t, time.January, got.Month(), s)
		assert.Equal(t, 15, got.Day(), s)
	}

	year, ok := ParseDate("2024")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), year)

	for _, s := range []string{"", "hello", "13/45/2024", "20240", "202.4", "-2024", "12"} {
		_, ok := ParseDate(s)
		assert.False(t, ok, s)
	}
}

func TestValue_JSON(t *testing.T) {
	row := Row{
		"text":   Text("hi"),
		"num":    Number(1.5),
		"null":   Null(),
		"nested": Opaque(json.RawMessage(`{"a":[1,2]}`)),
	}
	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi","num":1.5,"null":null,"nested":{"a":[1,2]}}`, string(data))

	var decoded Row
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, KindText, decoded["text"].Kind())
	assert.Equal(t, KindNumber, decoded["num"].Kind())
	assert.True(t, decoded["null"].IsNull())
	assert.Equal(t, KindOpaque, decoded["nested"].Kind())
	assert.Equal(t, `{"a":[1,2]}`, decoded["nested"].String())
}

func TestValue_Coercion(t *testing.T) {
	n, ok := Text("12.5").Float()
	assert.True(t, ok)
	assert.Equal(t, 12.5, n)

	_, ok = Opaque(json.RawMessage(`[1]`)).Float()
	assert.False(t, ok)

	d := Date(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), "May 1, 2024")
	assert.Equal(t, "May 1, 2024", d.String())
	_, ok = d.Float()
	assert.False(t, ok)

	assert.Equal(t, "0.1", Number(0.1).String())
	assert.Equal(t, "", Null().String())
}

func TestValue_Display(t *testing.T) {
	long := Opaque(json.RawMessage(`{"description":"` + strings.Repeat("x", 80) + `"}`))
	shown := long.Display(50)

	assert.Len(t, []rune(shown), 53)
	assert.True(t, strings.HasSuffix(shown, "..."))
	assert.Equal(t, "short", Text("short").Display(50))
	assert.Equal(t, long.String(), long.Display(0))
}
