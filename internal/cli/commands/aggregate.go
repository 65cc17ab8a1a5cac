package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"linka/internal/dataprocessing"
)

// NewAggregateCommand creates the aggregate command
func NewAggregateCommand() *cobra.Command {
	var (
		groupBy string
		value   string
		fn      string
	)

	cmd := &cobra.Command{
		Use:   "aggregate FILE",
		Short: "Group rows by a column and reduce a numeric column",
		Example: `  linka aggregate sales.csv --group-by region --value total --func sum
  linka aggregate sales.csv -g region -V total -F average -o markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := EnvFrom(cmd)
			agg := dataprocessing.AggregateFunc(fn)
			if !agg.Valid() {
				return fmt.Errorf("%w: %q", dataprocessing.ErrUnknownAggregate, fn)
			}

			f, err := loadFile(cmd, env, args[0], nil)
			if err != nil {
				return err
			}
			for _, col := range []string{groupBy, value} {
				if err := f.requireColumn(col); err != nil {
					return err
				}
			}

			rows, err := dataprocessing.Aggregate(f.Rows, groupBy, value, agg)
			if err != nil {
				return err
			}
			return renderRows(cmd.OutOrStdout(), env.Output, []string{groupBy, value}, rows)
		},
	}

	cmd.Flags().StringVarP(&groupBy, "group-by", "g", "", "Column to group by")
	cmd.Flags().StringVarP(&value, "value", "V", "", "Numeric column to reduce")
	cmd.Flags().StringVarP(&fn, "func", "F", string(dataprocessing.AggregateSum), "Reduction: sum, average, max, min or count")
	_ = cmd.MarkFlagRequired("group-by")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}
