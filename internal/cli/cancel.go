package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel [experiment-id]",
	Short: "Cancel a running experiment",
	Long:  `Ask the backend to cancel an experiment. Without an id the current experiment is cancelled.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		id, err := experimentIDArg(ctx, app, args)
		if err != nil {
			return err
		}
		resp, err := app.Client.Cancel(ctx, id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if resp.Cancelled {
			fmt.Fprintf(out, "%s experiment %s\n", color.YellowString("Cancelled"), id)
		} else {
			fmt.Fprintf(out, "Experiment %s was not cancelled\n", id)
		}
		if resp.Message != "" {
			fmt.Fprintln(out, resp.Message)
		}
		return nil
	})
}
