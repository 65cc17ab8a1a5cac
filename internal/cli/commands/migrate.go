package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"linka/internal/storage"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the dashboard database",
		Long: `Apply pending schema migrations to the dashboard database configured
by storage.sqlite_path. The server does this on start; the command exists
for deployments that migrate ahead of a rollout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := EnvFrom(cmd)
			paths, err := env.Config.ResolvePaths()
			if err != nil {
				return err
			}
			if err := paths.EnsureDirectories(); err != nil {
				return err
			}

			store, err := storage.OpenSQLite(cmd.Context(), paths.DatabaseFile, env.Logger)
			if err != nil {
				return err
			}
			defer store.Close()

			version, err := store.SchemaVersion()
			if err != nil {
				return err
			}
			if env.Output == OutputJSON {
				return renderJSON(cmd.OutOrStdout(), map[string]any{"database": paths.DatabaseFile, "schema_version": version})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is at schema version %d\n", paths.DatabaseFile, version)
			return nil
		},
	}
}
