package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"linka/internal/dataprocessing"
)

// columnSummary is one line of inspect output
type columnSummary struct {
	Name   string                    `json:"name"`
	Kind   dataprocessing.ColumnKind `json:"kind"`
	Filled int                       `json:"filled"`
	Sample string                    `json:"sample"`
}

// inspectResult is the JSON form of inspect output
type inspectResult struct {
	File     string          `json:"file"`
	FileType string          `json:"file_type"`
	Rows     int             `json:"rows"`
	Columns  []columnSummary `json:"columns"`
}

// NewInspectCommand creates the inspect command
func NewInspectCommand() *cobra.Command {
	var (
		force  []string
		sample int
	)

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Parse a file and show its columns and their kinds",
		Example: `  linka inspect sales.csv
  linka inspect orders.xml --force zip_code
  linka inspect report.xlsx -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := EnvFrom(cmd)
			f, err := loadFile(cmd, env, args[0], force)
			if err != nil {
				return err
			}

			result := inspectResult{
				File:     args[0],
				FileType: f.Dataset.FileType,
				Rows:     f.Dataset.RowCount(),
				Columns:  summarize(f),
			}

			w := cmd.OutOrStdout()
			if env.Output == OutputJSON {
				return renderJSON(w, result)
			}

			_, _ = fmt.Fprintf(w, "%s (%s, %d rows)\n", result.File, result.FileType, result.Rows)
			t := newTable(w, "Column", "Kind", "Filled", "Sample")
			for _, c := range result.Columns {
				t.AppendRow(table.Row{c.Name, c.Kind, fmt.Sprintf("%d/%d", c.Filled, result.Rows), c.Sample})
			}
			render(t, env.Output)

			if sample > 0 && len(f.Rows) > 0 {
				_, _ = fmt.Fprintln(w)
				n := min(sample, len(f.Rows))
				return renderRows(w, env.Output, f.Dataset.Columns, f.Rows[:n])
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&force, "force", nil, "Columns to treat as categorical regardless of content")
	cmd.Flags().IntVar(&sample, "sample", 0, "Also print the first N rows")
	return cmd
}

func summarize(f *loadedFile) []columnSummary {
	out := make([]columnSummary, len(f.Dataset.Columns))
	for i, col := range f.Dataset.Columns {
		s := columnSummary{Name: col, Kind: f.Classification.KindOf(col)}
		for _, row := range f.Dataset.Rows {
			v := row.Get(col)
			if v.IsNull() || v.String() == "" {
				continue
			}
			s.Filled++
			if s.Sample == "" {
				s.Sample = v.Display(maxCellWidth)
			}
		}
		out[i] = s
	}
	return out
}
