// Package dataprocessing holds the tabular core behind Linka dashboards:
// column classification, derived chart series and the table view engine.
// Everything here is a pure function over in-memory rows; callers own the
// rows and get fresh copies back.
//
// # Architecture
//
// The package is organized into four components:
//
// 1. Classifier: tags each column as numeric, date or categorical from a sample
// 2. Transformer: derives percent change, YoY change, moving average, growth
// rate and cumulative sum series from a numeric column
// 3. Table engine: column filters, global search, stable sort and pagination
// 4. Aggregation and chart data: group-by reductions and chart filters
//
// # Usage
//
//	c := dataprocessing.Classify(ds.Columns, ds.Rows, dataprocessing.ClassifyOptions{
//	    ForceCategorical: ds.ForceCategorical,
//	})
//
//	opts := dataprocessing.DefaultTransformOptions()
//	opts.PercentageChange = true
//	rows, err := dataprocessing.Transform(ds.Rows, "revenue", opts)
//
//	page := dataprocessing.VisiblePage(ds.Rows, dataprocessing.TableQuery{
//	    Filters:  dataprocessing.FilterSet{"age": {{Operator: ">", Value: "30"}}},
//	    Search:   "smith",
//	    PageSize: 25,
//	}, c)
//
// # Data Flow
//
//	Ingested rows → Classifier → Classification
//	                    ├→ Transformer → derived rows → chart data
//	                    └→ Table engine → visible page
//
// # Error Handling
//
// Bad cell values never produce errors. They are excluded by filters, become
// null in derived series and push columns to categorical. Only programmer
// errors surface, such as a moving average period below one.
package dataprocessing
