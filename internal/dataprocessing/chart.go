package dataprocessing

import (
	"sort"
)

// Chart types with their own filter rules
const (
	ChartPie = "pie"
)

// Chart sort orders
const (
	ChartOrderOriginal   = "original"
	ChartOrderAscending  = "ascending"
	ChartOrderDescending = "descending"
)

// MetricPercentage turns pie values into shares of the total
const MetricPercentage = "percentage"

// ChartDataset is one plotted series
type ChartDataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// ChartData is the label axis plus parallel datasets
type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// ChartFilter narrows what a chart shows
type ChartFilter struct {
	Type          string   `json:"type,omitempty"`
	DataPoints    int      `json:"data_points,omitempty"`
	MinValue      *float64 `json:"min_value,omitempty"`
	MaxValue      *float64 `json:"max_value,omitempty"`
	SortOrder     string   `json:"sort_order,omitempty"`
	CategoryLimit int      `json:"category_limit,omitempty"`
	Metric        string   `json:"metric,omitempty"`
}

// BuildChartData plots ys against x. Cells that are not numbers plot as 0.
func BuildChartData(rows []Row, x string, ys ...string) ChartData {
	data := ChartData{
		Labels:   make([]string, len(rows)),
		Datasets: make([]ChartDataset, len(ys)),
	}
	for i, row := range rows {
		data.Labels[i] = row.Get(x).String()
	}
	for d, y := range ys {
		series := make([]float64, len(rows))
		for i, row := range rows {
			series[i], _ = row.Get(y).Float()
		}
		data.Datasets[d] = ChartDataset{Label: y, Data: series}
	}
	return data
}

// ApplyChartFilter returns a filtered copy of data. Range and sort rules look
// at the first dataset and move every dataset with it.
func ApplyChartFilter(data ChartData, f ChartFilter) ChartData {
	if len(data.Datasets) == 0 {
		return data
	}
	if f.Type == ChartPie {
		return applyPieFilter(data, f)
	}

	idx := make([]int, len(data.Labels))
	for i := range idx {
		idx[i] = i
	}
	if f.DataPoints > 0 && f.DataPoints < len(idx) {
		idx = idx[:f.DataPoints]
	}
	if f.MinValue != nil || f.MaxValue != nil {
		first := data.Datasets[0].Data
		kept := idx[:0:0]
		for _, i := range idx {
			v := first[i]
			if f.MinValue != nil && v < *f.MinValue {
				continue
			}
			if f.MaxValue != nil && v > *f.MaxValue {
				continue
			}
			kept = append(kept, i)
		}
		idx = kept
	}
	if f.SortOrder == ChartOrderAscending || f.SortOrder == ChartOrderDescending {
		first := data.Datasets[0].Data
		desc := f.SortOrder == ChartOrderDescending
		sort.SliceStable(idx, func(a, b int) bool {
			if desc {
				return first[idx[a]] > first[idx[b]]
			}
			return first[idx[a]] < first[idx[b]]
		})
	}
	return pick(data, idx)
}

func applyPieFilter(data ChartData, f ChartFilter) ChartData {
	values := data.Datasets[0].Data
	total := 0.0
	for _, v := range values {
		total += v
	}

	n := len(data.Labels)
	if f.CategoryLimit > 0 && f.CategoryLimit < n {
		n = f.CategoryLimit
	}
	out := ChartData{
		Labels:   append([]string(nil), data.Labels[:n]...),
		Datasets: []ChartDataset{{Label: data.Datasets[0].Label, Data: append([]float64(nil), values[:n]...)}},
	}
	if f.Metric == MetricPercentage && total != 0 {
		for i, v := range out.Datasets[0].Data {
			out.Datasets[0].Data[i] = roundTo(v/total*100, 1)
		}
	}
	return out
}

func pick(data ChartData, idx []int) ChartData {
	out := ChartData{
		Labels:   make([]string, len(idx)),
		Datasets: make([]ChartDataset, len(data.Datasets)),
	}
	for j, i := range idx {
		out.Labels[j] = data.Labels[i]
	}
	for d, ds := range data.Datasets {
		series := make([]float64, len(idx))
		for j, i := range idx {
			series[j] = ds.Data[i]
		}
		out.Datasets[d] = ChartDataset{Label: ds.Label, Data: series}
	}
	return out
}
