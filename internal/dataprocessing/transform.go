package dataprocessing

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Derived column suffixes
const (
	SuffixPctChange  = "_pct_change"
	SuffixYOYChange  = "_yoy_change"
	SuffixMA         = "_ma"
	SuffixGrowthRate = "_growth_rate"
	SuffixCumSum     = "_cumsum"
)

// yoyLag is the number of rows between a value and its year-ago counterpart
const yoyLag = 12

// MovingAveragePeriods are the periods offered to clients
var MovingAveragePeriods = []int{3, 5, 7, 10}

// TransformOptions selects the derived series to compute. Options are
// independent: each one reads only the source column.
type TransformOptions struct {
	PercentageChange bool   `json:"show_percentage_change"`
	YOYChange        bool   `json:"show_yoy_change"`
	DateColumn       string `json:"date_column,omitempty"`
	MovingAverage    bool   `json:"show_moving_average"`
	Period           int    `json:"moving_average_period,omitempty"`
	GrowthRate       bool   `json:"show_growth_rate"`
	CumulativeSum    bool   `json:"show_cumulative_sum"`
}

// DefaultTransformOptions returns options with nothing enabled and the
// default moving average period
func DefaultTransformOptions() TransformOptions {
	return TransformOptions{Period: 3}
}

// Any reports whether at least one option is enabled
func (o TransformOptions) Any() bool {
	return o.PercentageChange || o.YOYChange || o.MovingAverage || o.GrowthRate || o.CumulativeSum
}

// DerivedColumns lists the column names Transform adds for column
func (o TransformOptions) DerivedColumns(column string) []string {
	var cols []string
	if o.PercentageChange {
		cols = append(cols, column+SuffixPctChange)
	}
	if o.YOYChange && o.DateColumn != "" {
		cols = append(cols, column+SuffixYOYChange)
	}
	if o.MovingAverage {
		cols = append(cols, MovingAverageColumn(column, o.Period))
	}
	if o.GrowthRate {
		cols = append(cols, column+SuffixGrowthRate)
	}
	if o.CumulativeSum {
		cols = append(cols, column+SuffixCumSum)
	}
	return cols
}

// MovingAverageColumn names the moving average series for column
func MovingAverageColumn(column string, period int) string {
	return fmt.Sprintf("%s%s%d", column, SuffixMA, period)
}

// Transform returns copies of rows with one derived column per enabled
// option, aligned row for row with the input. The only error is a
// non-positive moving average period.
//
// When year-over-year change is requested without a DateColumn, or any date
// in it fails to parse, the input rows are returned unchanged and no option
// is applied.
func Transform(rows []Row, column string, opts TransformOptions) ([]Row, error) {
	if opts.MovingAverage && opts.Period <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPeriod, opts.Period)
	}

	values := make([]float64, len(rows))
	valid := make([]bool, len(rows))
	for i, row := range rows {
		values[i], valid[i] = row.Get(column).Float()
	}

	var yoy []Value
	if opts.YOYChange {
		if opts.DateColumn == "" {
			return rows, nil
		}
		var ok bool
		yoy, ok = yoyChange(rows, opts.DateColumn, values, valid)
		if !ok {
			return rows, nil
		}
	}

	out := make([]Row, len(rows))
	for i, row := range rows {
		out[i] = row.Clone()
	}

	if opts.PercentageChange {
		merge(out, column+SuffixPctChange, pctChange(values, valid))
	}
	if yoy != nil {
		merge(out, column+SuffixYOYChange, yoy)
	}
	if opts.MovingAverage {
		merge(out, MovingAverageColumn(column, opts.Period), movingAverage(values, valid, opts.Period))
	}
	if opts.GrowthRate {
		merge(out, column+SuffixGrowthRate, growthRate(values, valid))
	}
	if opts.CumulativeSum {
		merge(out, column+SuffixCumSum, cumulativeSum(values, valid))
	}
	return out, nil
}

func merge(rows []Row, column string, series []Value) {
	for i := range rows {
		rows[i][column] = series[i]
	}
}

// change is (curr-prev)/prev*100 with a zero previous value mapped to 0
func change(curr, prev float64) Value {
	if prev == 0 {
		return Number(0)
	}
	return Number(round2((curr - prev) / prev * 100))
}

func pctChange(values []float64, valid []bool) []Value {
	out := make([]Value, len(values))
	for i := range values {
		switch {
		case i == 0:
			out[i] = Number(0)
		case !valid[i] || !valid[i-1]:
			out[i] = Null()
		default:
			out[i] = change(values[i], values[i-1])
		}
	}
	return out
}

// yoyChange computes the series in ascending date order and maps it back to
// input positions. It reports false when a date does not parse.
func yoyChange(rows []Row, dateColumn string, values []float64, valid []bool) ([]Value, bool) {
	dates := make([]time.Time, len(rows))
	for i, row := range rows {
		t, ok := row.Get(dateColumn).Time()
		if !ok {
			return nil, false
		}
		dates[i] = t
	}

	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dates[order[a]].Before(dates[order[b]])
	})

	out := make([]Value, len(rows))
	for pos, idx := range order {
		if pos < yoyLag {
			out[idx] = Null()
			continue
		}
		prev := order[pos-yoyLag]
		if !valid[idx] || !valid[prev] {
			out[idx] = Null()
			continue
		}
		out[idx] = change(values[idx], values[prev])
	}
	return out, true
}

func movingAverage(values []float64, valid []bool, period int) []Value {
	out := make([]Value, len(values))
	for i := range values {
		if i < period-1 {
			out[i] = Null()
			continue
		}
		sum := 0.0
		complete := true
		for j := i - period + 1; j <= i; j++ {
			if !valid[j] {
				complete = false
				break
			}
			sum += values[j]
		}
		if !complete {
			out[i] = Null()
			continue
		}
		out[i] = Number(round2(sum / float64(period)))
	}
	return out
}

func growthRate(values []float64, valid []bool) []Value {
	out := make([]Value, len(values))
	n := len(values)
	rate := Null()
	if n >= 2 && valid[0] && valid[n-1] && values[0] > 0 {
		g := (math.Pow(values[n-1]/values[0], 1/float64(n-1)) - 1) * 100
		if !math.IsNaN(g) && !math.IsInf(g, 0) {
			rate = Number(round2(g))
		}
	}
	for i := range out {
		out[i] = rate
	}
	return out
}

// cumulativeSum skips unparsable cells: they report null and leave the
// running total untouched
func cumulativeSum(values []float64, valid []bool) []Value {
	out := make([]Value, len(values))
	sum := 0.0
	for i := range values {
		if !valid[i] {
			out[i] = Null()
			continue
		}
		sum += values[i]
		out[i] = Number(round2(sum))
	}
	return out
}
