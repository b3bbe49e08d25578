package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the current experiment",
	Long: `Clear the current experiment so the next dashboard start or watch begins
from a new prompt. Stored experiments on the backend are not touched.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		id, err := app.Store.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load current experiment: %w", err)
		}
		app.Flow.Reset(ctx)
		if id == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No current experiment")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared current experiment %s\n", id)
		return nil
	})
}
