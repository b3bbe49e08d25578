package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mlab/internal/util"
)

var experimentsCmd = &cobra.Command{
	Use:     "experiments",
	Aliases: []string{"exp"},
	Short:   "Browse stored experiments",
}

var experimentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all experiments",
	RunE:  runExperimentsList,
}

var experimentsShowCmd = &cobra.Command{
	Use:   "show <experiment-id>",
	Short: "Show an experiment with its responses",
	Long: `Show an experiment with its responses.

Examples:
  mlab experiments show 3f2a9c1e-... --full`,
	Args: cobra.ExactArgs(1),
	RunE: runExperimentsShow,
}

var showFull bool

func init() {
	rootCmd.AddCommand(experimentsCmd)
	experimentsCmd.AddCommand(experimentsListCmd)
	experimentsCmd.AddCommand(experimentsShowCmd)
	experimentsShowCmd.Flags().BoolVar(&showFull, "full", false, "Print full response texts")
}

func runExperimentsList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		experiments, err := app.Client.ListExperiments(ctx)
		if err != nil {
			return err
		}
		current, err := app.Store.Load(ctx)
		if err != nil {
			app.Log.WithError(err).Warn("failed to load current experiment")
		}
		printExperiments(cmd.OutOrStdout(), experiments, current)
		return nil
	})
}

func runExperimentsShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		exp, err := app.Client.GetExperiment(ctx, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Experiment: %s\n", exp.ID)
		fmt.Fprintf(out, "Name:       %s\n", exp.Name)
		fmt.Fprintf(out, "Created:    %s\n", util.FormatDateTime(exp.CreatedTime()))
		fmt.Fprintf(out, "Prompt:     %s\n\n", exp.OriginalMessage)
		printResults(out, exp.Results, showFull)
		return nil
	})
}
