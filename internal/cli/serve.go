package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mlab/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web dashboard",
	Long: `Start the local web dashboard server.

The experiment that was current when the dashboard last stopped is resumed.

Examples:
  mlab serve              # Start on the configured port (default 8080)
  mlab serve --port 3000  # Start on port 3000`,
	RunE: runServe,
}

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		port := app.Config.Server.Port
		if servePort > 0 {
			port = servePort
		}

		if id, err := app.Flow.Resume(ctx); err != nil {
			app.Log.WithError(err).Warn("failed to resume previous experiment")
		} else if id != "" {
			app.Log.WithField("experiment_id", id).Info("resumed experiment")
		}

		server := web.NewServer(port, web.Deps{
			Client: app.Client,
			Store:  app.Store,
			Flow:   app.Flow,
			Keys:   app.Keys,
			Poller: app.Controller,
			Log:    app.Log,
		})
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")
		return nil
	})
}
