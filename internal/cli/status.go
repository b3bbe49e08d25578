package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [experiment-id]",
	Short: "Show the status of an experiment",
	Long: `Fetch the status of an experiment once. Without an id the current
experiment is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the raw status as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		id, err := experimentIDArg(ctx, app, args)
		if err != nil {
			return err
		}
		status, err := app.Client.FetchStatus(ctx, id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if statusJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		}
		printStatus(out, status)
		return nil
	})
}

// experimentIDArg returns the id argument or the persisted current experiment.
func experimentIDArg(ctx context.Context, app *AppContext, args []string) (string, error) {
	if len(args) == 1 && args[0] != "" {
		return args[0], nil
	}
	id, err := app.Store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load current experiment: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("no current experiment; pass an experiment id")
	}
	return id, nil
}
