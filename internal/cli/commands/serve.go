package commands

import (
	"github.com/spf13/cobra"

	"linka/internal/app"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		Long: `Start the Linka server. Uploads left in the data directory from a
previous run are reloaded before the listener opens.

Configuration comes from --config, then LINKA_* environment variables.`,
		Example: `  linka serve
  linka serve --port 9090
  LINKA_LOGGING_LEVEL=debug linka serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := EnvFrom(cmd)
			if cmd.Flags().Changed("port") {
				env.Config.Server.Port = port
			}

			// nil logger: the server logs according to the logging config
			application, err := app.NewApplication(cmd.Context(), env.Config, nil)
			if err != nil {
				return err
			}
			return application.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides server.port)")
	return cmd
}
