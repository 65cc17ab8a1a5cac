package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"linka/internal/dataprocessing"
)

// NewQueryCommand creates the query command
func NewQueryCommand() *cobra.Command {
	var (
		filters  []string
		search   string
		sortBy   string
		page     int
		pageSize int
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "query FILE",
		Short: "Filter, search, sort and page the rows of a file",
		Long: `Run the table pipeline against a local file: column filters, global
search, sort and pagination, in that order.

Filters are written COLUMN:OPERATOR[:VALUE]. The between operator takes
LOW..HIGH. Every filter must pass for a row to be shown.`,
		Example: `  linka query sales.csv --filter "region:equals:north" --sort total:desc
  linka query sales.csv --filter "total:between:10..20" --all -o csv
  linka query orders.json --search basra --page 2 --page-size 25`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := EnvFrom(cmd)
			f, err := loadFile(cmd, env, args[0], nil)
			if err != nil {
				return err
			}

			q := dataprocessing.TableQuery{
				Search:    search,
				PageIndex: page - 1,
				PageSize:  pageSize,
			}
			if q.Filters, err = parseFilters(filters); err != nil {
				return err
			}
			for column := range q.Filters {
				if err := f.requireColumn(column); err != nil {
					return err
				}
			}
			if sortBy != "" {
				spec, err := parseSort(sortBy)
				if err != nil {
					return err
				}
				if err := f.requireColumn(spec.Column); err != nil {
					return err
				}
				q.Sort = &spec
			}

			w := cmd.OutOrStdout()
			if all {
				return renderRows(w, env.Output, f.Dataset.Columns, dataprocessing.ApplyQuery(f.Rows, q, f.Classification))
			}

			p := dataprocessing.VisiblePage(f.Rows, q, f.Classification)
			if env.Output == OutputJSON {
				return renderJSON(w, p)
			}
			if err := renderRows(w, env.Output, f.Dataset.Columns, p.Rows); err != nil {
				return err
			}
			if env.Output != OutputCSV {
				_, _ = fmt.Fprintf(w, "page %d of %d, %d matching rows\n", p.PageIndex+1, max(p.PageCount, 1), p.TotalFilteredCount)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "Column filter COLUMN:OPERATOR[:VALUE] (repeatable)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive search across all columns")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort column, optionally COLUMN:asc or COLUMN:desc")
	cmd.Flags().IntVar(&page, "page", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&pageSize, "page-size", dataprocessing.DefaultPageSize, "Rows per page")
	cmd.Flags().BoolVar(&all, "all", false, "Print every matching row instead of one page")
	return cmd
}

// parseFilters reads COLUMN:OPERATOR[:VALUE] expressions
func parseFilters(exprs []string) (dataprocessing.FilterSet, error) {
	fs := dataprocessing.FilterSet{}
	for _, expr := range exprs {
		parts := strings.SplitN(expr, ":", 3)
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid filter %q: want COLUMN:OPERATOR[:VALUE]", expr)
		}
		f := dataprocessing.Filter{Operator: strings.ToLower(strings.TrimSpace(parts[1]))}
		if len(parts) == 3 {
			f.Value = parts[2]
		}
		if f.Operator == dataprocessing.OpBetween {
			low, high, ok := strings.Cut(f.Value, "..")
			if !ok {
				return nil, fmt.Errorf("invalid filter %q: between takes LOW..HIGH", expr)
			}
			f.Value, f.Value2 = low, high
		}
		fs.Add(strings.TrimSpace(parts[0]), f)
	}
	if errs := dataprocessing.ValidateFilters(fs); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return fs, nil
}

func parseSort(s string) (dataprocessing.SortSpec, error) {
	column, dir, _ := strings.Cut(s, ":")
	spec := dataprocessing.SortSpec{Column: column, Direction: dataprocessing.SortAsc}
	switch strings.ToLower(dir) {
	case "", dataprocessing.SortAsc:
	case dataprocessing.SortDesc:
		spec.Direction = dataprocessing.SortDesc
	default:
		return spec, fmt.Errorf("invalid sort direction %q: want asc or desc", dir)
	}
	return spec, nil
}
