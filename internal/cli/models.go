package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models offered by the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *AppContext) error {
			models, err := app.Client.ListModels(ctx)
			if err != nil {
				return err
			}
			printModels(cmd.OutOrStdout(), models)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
