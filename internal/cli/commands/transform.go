package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"linka/internal/dataprocessing"
	"linka/internal/exporter"
	"linka/internal/validation"
)

// NewTransformCommand creates the transform command
func NewTransformCommand() *cobra.Command {
	var (
		column string
		opts   = dataprocessing.DefaultTransformOptions()
		out    string
	)

	cmd := &cobra.Command{
		Use:   "transform FILE",
		Short: "Add derived series (change, moving average, growth) for a column",
		Example: `  linka transform sales.csv --column total --pct --ma --period 4
  linka transform sales.csv --column total --yoy --date-column month --out sales_yoy.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := EnvFrom(cmd)
			if !opts.Any() {
				return errors.New("no transformation selected: use --pct, --yoy, --ma, --growth or --cumsum")
			}

			f, err := loadFile(cmd, env, args[0], nil)
			if err != nil {
				return err
			}
			if err := f.requireColumn(column); err != nil {
				return err
			}
			if opts.YOYChange {
				if opts.DateColumn == "" {
					if len(f.Classification.Date) == 0 {
						return errors.New("--yoy needs a date column and none was detected")
					}
					opts.DateColumn = f.Classification.Date[0]
				}
				if err := f.requireColumn(opts.DateColumn); err != nil {
					return err
				}
			}

			rows, err := dataprocessing.Transform(f.Dataset.Rows, column, opts)
			if err != nil {
				return err
			}
			columns := append([]string{}, f.Dataset.Columns...)
			if len(rows) > 0 {
				for _, col := range opts.DerivedColumns(column) {
					if _, ok := rows[0][col]; ok && !f.Dataset.HasColumn(col) {
						columns = append(columns, col)
					}
				}
			}

			if out == "" {
				return renderRows(cmd.OutOrStdout(), env.Output, columns, rows)
			}
			return writeExport(env, out, columns, rows)
		},
	}

	cmd.Flags().StringVarP(&column, "column", "c", "", "Numeric column to transform")
	cmd.Flags().BoolVar(&opts.PercentageChange, "pct", false, "Add the change from the previous row in percent")
	cmd.Flags().BoolVar(&opts.YOYChange, "yoy", false, "Add the change from the same point one year earlier")
	cmd.Flags().StringVar(&opts.DateColumn, "date-column", "", "Date column used by --yoy (default: the first date column)")
	cmd.Flags().BoolVar(&opts.MovingAverage, "ma", false, "Add a trailing moving average")
	cmd.Flags().IntVar(&opts.Period, "period", opts.Period, "Moving average period")
	cmd.Flags().BoolVar(&opts.GrowthRate, "growth", false, "Add the growth rate from the first row")
	cmd.Flags().BoolVar(&opts.CumulativeSum, "cumsum", false, "Add the running total")
	cmd.Flags().StringVar(&out, "out", "", "Write the result to a .csv or .xlsx file instead of stdout")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

// writeExport writes rows to path in the format named by its extension
func writeExport(env *Env, path string, columns []string, rows []dataprocessing.Row) error {
	ext := filepath.Ext(path)
	if ext == "" {
		return fmt.Errorf("output file %s needs a .csv or .xlsx extension", path)
	}
	format, err := exporter.ParseFormat(ext[1:])
	if err != nil {
		return err
	}
	if err := validation.NewFileValidator(env.Logger).ValidateOutputDirectory(filepath.Dir(path)); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := exporter.NewCSVWriter(env.Logger).Export(file, format, columns, rows, false); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
