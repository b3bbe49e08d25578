package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics [experiment-id]",
	Short: "Show quality metrics of an experiment",
	Long:  `Show quality metrics of an experiment. Without an id the current experiment is used.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *AppContext) error {
			id, err := experimentIDArg(ctx, app, args)
			if err != nil {
				return err
			}
			metrics, err := app.Client.QualityMetrics(ctx, id)
			if err != nil {
				return err
			}
			printMetrics(cmd.OutOrStdout(), metrics)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}
