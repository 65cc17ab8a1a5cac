package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"linka/internal/config"
	"linka/internal/dataprocessing"
	"linka/internal/services"
	"linka/internal/shared/testutil"
)

// run executes cmd alone with an Env in its context and returns stdout
func run(t *testing.T, cmd *cobra.Command, output OutputFormat, args ...string) (string, error) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)

	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Storage.SQLitePath = "test.db"

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(WithEnv(context.Background(), &Env{Config: cfg, Logger: logger, Output: output}))
	return out.String(), err
}

func TestCommandConstruction(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewVersionCommand(), "version", nil},
		{NewServeCommand(), "serve", []string{"port"}},
		{NewInspectCommand(), "inspect FILE", []string{"force", "sample"}},
		{NewQueryCommand(), "query FILE", []string{"filter", "search", "sort", "page", "page-size", "all"}},
		{NewTransformCommand(), "transform FILE", []string{"column", "pct", "yoy", "date-column", "ma", "period", "growth", "cumsum", "out"}},
		{NewAggregateCommand(), "aggregate FILE", []string{"group-by", "value", "func"}},
		{NewMigrateCommand(), "migrate", nil},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestParseFilters(t *testing.T) {
	tests := []struct {
		name    string
		exprs   []string
		want    dataprocessing.FilterSet
		wantErr bool
	}{
		{
			name:  "operator and value",
			exprs: []string{"region:equals:north"},
			want:  dataprocessing.FilterSet{"region": {{Operator: "equals", Value: "north"}}},
		},
		{
			name:  "value keeps colons",
			exprs: []string{"time:contains:12:30"},
			want:  dataprocessing.FilterSet{"time": {{Operator: "contains", Value: "12:30"}}},
		},
		{
			name:  "between range",
			exprs: []string{"revenue:between:100..130"},
			want:  dataprocessing.FilterSet{"revenue": {{Operator: "between", Value: "100", Value2: "130"}}},
		},
		{
			name:  "operand-free operator",
			exprs: []string{"region:is empty"},
			want:  dataprocessing.FilterSet{"region": {{Operator: "is empty"}}},
		},
		{
			name:  "several filters on one column",
			exprs: []string{"units:>:9", "units:<:15"},
			want:  dataprocessing.FilterSet{"units": {{Operator: ">", Value: "9"}, {Operator: "<", Value: "15"}}},
		},
		{name: "missing operator", exprs: []string{"region"}, wantErr: true},
		{name: "unknown operator", exprs: []string{"region:like:n%"}, wantErr: true},
		{name: "missing operand", exprs: []string{"units:>"}, wantErr: true},
		{name: "between without range", exprs: []string{"units:between:4"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFilters(tt.exprs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSort(t *testing.T) {
	spec, err := parseSort("revenue")
	require.NoError(t, err)
	assert.Equal(t, dataprocessing.SortSpec{Column: "revenue", Direction: "asc"}, spec)

	spec, err = parseSort("revenue:DESC")
	require.NoError(t, err)
	assert.True(t, spec.Descending())

	_, err = parseSort("revenue:sideways")
	assert.Error(t, err)
}

func TestInspectCommand(t *testing.T) {
	path := testutil.WriteFixture(t, "sales.csv", testutil.SalesCSV)

	out, err := run(t, NewInspectCommand(), OutputJSON, path)
	require.NoError(t, err)

	assert.Contains(t, out, `"file_type": "csv"`)
	assert.Contains(t, out, `"rows": 6`)
	assert.Contains(t, out, `"kind": "date"`)
	assert.Contains(t, out, `"kind": "numeric"`)

	out, err = run(t, NewInspectCommand(), OutputTable, path, "--force", "units", "--sample", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "sales.csv (csv, 6 rows)")
	assert.Contains(t, out, "5/6") // revenue has one blank
	assert.Contains(t, out, "(2 rows)")
}

func TestInspectCommand_RejectsUnsupportedFile(t *testing.T) {
	path := testutil.WriteFixture(t, "notes.md", "# hi")

	_, err := run(t, NewInspectCommand(), OutputTable, path)
	assert.ErrorContains(t, err, "unsupported extension")
}

func TestQueryCommand(t *testing.T) {
	path := testutil.WriteFixture(t, "sales.csv", testutil.SalesCSV)

	out, err := run(t, NewQueryCommand(), OutputCSV, path,
		"--filter", "region:equals:north", "--sort", "revenue:desc", "--all")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{
		"month,region,revenue,units",
		"2023-06-01,north,150,15",
		"2023-03-01,north,121,11",
		"2023-01-01,north,100,10",
	}, lines)
}

func TestQueryCommand_Paging(t *testing.T) {
	path := testutil.WriteFixture(t, "sales.csv", testutil.SalesCSV)

	out, err := run(t, NewQueryCommand(), OutputTable, path, "--page", "2", "--page-size", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "(2 rows)")
	assert.Contains(t, out, "page 2 of 2, 6 matching rows")
}

func TestQueryCommand_UnknownColumn(t *testing.T) {
	path := testutil.WriteFixture(t, "sales.csv", testutil.SalesCSV)

	_, err := run(t, NewQueryCommand(), OutputTable, path, "--sort", "profit")
	assert.True(t, errors.Is(err, services.ErrInvalidColumn))
}

func TestTransformCommand(t *testing.T) {
	path := testutil.WriteFixture(t, "sales.csv", testutil.SalesCSV)

	out, err := run(t, NewTransformCommand(), OutputCSV, path, "--column", "revenue", "--cumsum")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "month,region,revenue,units,revenue_cumsum", lines[0])
	assert.Equal(t, "2023-03-01,north,121,11,331.00", lines[3])
	assert.Equal(t, "2023-04-01,east,,9,", lines[4])
	assert.Equal(t, "2023-06-01,north,150,15,614.10", lines[6])
}

func TestTransformCommand_WritesXLSX(t *testing.T) {
	path := testutil.WriteFixture(t, "sales.csv", testutil.SalesCSV)
	dest := filepath.Join(t.TempDir(), "out", "sales.xlsx")

	_, err := run(t, NewTransformCommand(), OutputTable, path, "--column", "revenue", "--ma", "--period", "2", "--out", dest)
	require.NoError(t, err)

	f, err := excelize.OpenFile(dest)
	require.NoError(t, err)
	defer f.Close()
	header, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Equal(t, "revenue_ma2", header[0][4])
}

func TestTransformCommand_RequiresOption(t *testing.T) {
	path := testutil.WriteFixture(t, "sales.csv", testutil.SalesCSV)

	_, err := run(t, NewTransformCommand(), OutputTable, path, "--column", "revenue")
	assert.ErrorContains(t, err, "no transformation selected")
}

func TestAggregateCommand(t *testing.T) {
	path := testutil.WriteFixture(t, "sales.csv", testutil.SalesCSV)

	out, err := run(t, NewAggregateCommand(), OutputCSV, path, "-g", "region", "-V", "revenue", "-F", "sum")
	require.NoError(t, err)
	assert.Contains(t, out, "north,371.00")
	assert.Contains(t, out, "south,243.10")

	_, err = run(t, NewAggregateCommand(), OutputCSV, path, "-g", "region", "-V", "revenue", "-F", "median")
	assert.True(t, errors.Is(err, dataprocessing.ErrUnknownAggregate))
}

func TestMigrateCommand(t *testing.T) {
	out, err := run(t, NewMigrateCommand(), OutputTable)
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, NewVersionCommand(), OutputTable)
	require.NoError(t, err)
	assert.Contains(t, out, "Linka")
}

func TestWriteExport_RequiresExtension(t *testing.T) {
	env := &Env{Config: config.Default(), Logger: nil}
	err := writeExport(env, filepath.Join(os.TempDir(), "noext"), nil, nil)
	assert.Error(t, err)
}
