package dataprocessing

import (
	"fmt"
	"math"
)

// AggregateFunc names a group-by reduction
type AggregateFunc string

const (
	AggregateSum     AggregateFunc = "sum"
	AggregateAverage AggregateFunc = "average"
	AggregateMax     AggregateFunc = "max"
	AggregateMin     AggregateFunc = "min"
	AggregateCount   AggregateFunc = "count"
)

// Valid reports whether fn is supported
func (fn AggregateFunc) Valid() bool {
	switch fn {
	case AggregateSum, AggregateAverage, AggregateMax, AggregateMin, AggregateCount:
		return true
	}
	return false
}

// Aggregate groups rows by groupBy and reduces valueColumn with fn. Groups
// come out in first-seen order. Non-numeric values are skipped, and a group
// without any numeric value reports null.
func Aggregate(rows []Row, groupBy, valueColumn string, fn AggregateFunc) ([]Row, error) {
	if !fn.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAggregate, fn)
	}

	var order []string
	groups := make(map[string][]float64)
	for _, row := range rows {
		key := row.Get(groupBy)
		if key.IsNull() {
			continue
		}
		k := key.String()
		if _, ok := groups[k]; !ok {
			order = append(order, k)
			groups[k] = nil
		}
		if f, ok := row.Get(valueColumn).Float(); ok {
			groups[k] = append(groups[k], f)
		}
	}

	out := make([]Row, 0, len(order))
	for _, k := range order {
		out = append(out, Row{
			groupBy:     Text(k),
			valueColumn: reduce(groups[k], fn),
		})
	}
	return out, nil
}

func reduce(values []float64, fn AggregateFunc) Value {
	if fn == AggregateCount {
		return Number(float64(len(values)))
	}
	if len(values) == 0 {
		return Null()
	}
	var result float64
	switch fn {
	case AggregateAverage:
		for _, v := range values {
			result += v
		}
		result /= float64(len(values))
	case AggregateMax:
		result = math.Inf(-1)
		for _, v := range values {
			result = math.Max(result, v)
		}
	case AggregateMin:
		result = math.Inf(1)
		for _, v := range values {
			result = math.Min(result, v)
		}
	default:
		for _, v := range values {
			result += v
		}
	}
	return Number(round2(result))
}
