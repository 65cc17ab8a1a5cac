package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"linka/pkg/contracts"
)

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if EnvFrom(cmd).Output == OutputJSON {
				return renderJSON(cmd.OutOrStdout(), contracts.GetVersionInfo())
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), contracts.GetFullVersionString())
			return nil
		},
	}
}
