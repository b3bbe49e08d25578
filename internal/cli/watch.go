package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mlab/internal/domain"
	"github.com/emiliopalmerini/mlab/internal/state"
	"github.com/emiliopalmerini/mlab/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch [experiment-id]",
	Short: "Follow an experiment live",
	Long: `Follow an experiment until it reaches a terminal status.

Without an id the current experiment is resumed. The chosen experiment
becomes the current one.

Examples:
  mlab watch
  mlab watch 3f2a9c1e-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var (
	watchPlain bool
	watchStay  bool
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "Follow without the interactive view and print results at the end")
	watchCmd.Flags().BoolVar(&watchStay, "stay", false, "Keep the interactive view open after the experiment finishes")
}

func runWatch(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		if len(args) == 1 {
			if err := app.Flow.Select(ctx, args[0]); err != nil {
				return err
			}
		} else {
			id, err := app.Flow.Resume(ctx)
			if err != nil {
				return err
			}
			if id == "" {
				return fmt.Errorf("no current experiment; pass an id or run generate first")
			}
		}

		out := cmd.OutOrStdout()
		if watchPlain {
			return followPlain(ctx, app, out)
		}
		return followInteractive(ctx, app, out, !watchStay)
	})
}

// followInteractive runs the watch view. Leaving it closes the controller so
// no state is published after the view is gone.
func followInteractive(ctx context.Context, app *AppContext, out io.Writer, exitOnDone bool) error {
	if !isTerminal(out) {
		return followPlain(ctx, app, out)
	}

	logOut := app.Log.Out
	app.Log.SetOutput(io.Discard)
	snap, err := tui.Run(ctx, app.Store,
		tui.WithExitOnDone(exitOnDone),
		tui.WithCanceller(func(ctx context.Context) error {
			_, err := app.Flow.Cancel(ctx)
			return err
		}),
	)
	app.Log.SetOutput(logOut)
	app.Controller.Close()
	if err != nil {
		return err
	}

	printSettled(out, snap)
	return nil
}

// followPlain blocks until polling stops, then prints the final results.
func followPlain(ctx context.Context, app *AppContext, out io.Writer) error {
	updates, unsubscribe := app.Store.Subscribe()
	defer unsubscribe()

	var lastErr string
	for {
		snap := app.Store.Snapshot()
		if snap.PollingError != lastErr {
			lastErr = snap.PollingError
			if lastErr != "" {
				fmt.Fprintln(out, color.YellowString("poll failed: %s (retrying)", lastErr))
			}
		}
		if !snap.Polling && !snap.Loading {
			printSettled(out, snap)
			if snap.StatusData == nil && snap.PollingError != "" {
				return fmt.Errorf("polling failed: %s", snap.PollingError)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-updates:
		}
	}
}

func printSettled(out io.Writer, snap state.Snapshot) {
	if snap.StatusData != nil {
		printStatus(out, snap.StatusData)
		fmt.Fprintln(out)
	}
	if snap.StatusData == nil || snap.StatusData.Status != domain.StatusPending {
		printResults(out, snap.Results, true)
	}
}
