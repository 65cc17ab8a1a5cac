// Package cli provides the command-line interface for Linka.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"linka/internal/cli/commands"
	"linka/internal/config"
	"linka/internal/infrastructure"
	"linka/pkg/contracts"
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		output  string
		verbose bool
	)

	rootCmd := &cobra.Command{
		Use:   "linka",
		Short: "Linka - tabular data explorer",
		Long: `Linka loads CSV, TXT, JSON, XML, SVG and XLSX files into tables,
classifies their columns and serves filtering, transforms, charts and
saved dashboards over HTTP and WebSocket.

The inspect, query, transform and aggregate commands run the same
operations against a local file without starting the server.`,
		Version: contracts.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var (
				cfg *config.Config
				err error
			)
			if cfgFile != "" {
				cfg, err = config.LoadFile(cfgFile)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return err
			}

			// The file commands print results on stdout, so they only log
			// warnings unless asked for more
			level := "warn"
			switch {
			case verbose:
				level = "debug"
			case cmd.Name() == "serve":
				level = cfg.Logging.Level
			}
			logger := infrastructure.NewLogger(cmd.ErrOrStderr(), level, cfg.Logging.Development)

			if verbose && cfgFile != "" {
				fmt.Fprintf(os.Stderr, "Using config file: %s\n", cfgFile)
			}

			cmd.SetContext(commands.WithEnv(cmd.Context(), &commands.Env{
				Config: cfg,
				Logger: logger.With(slog.String("command", cmd.Name())),
				Output: commands.OutputFormat(output),
			}))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml, then the executable directory)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", string(commands.OutputTable), "Output format (table|json|csv|markdown)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json", "csv", "markdown"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewTransformCommand())
	rootCmd.AddCommand(commands.NewAggregateCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
