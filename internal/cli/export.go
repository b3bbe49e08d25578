package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mlab/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export [experiment-id]",
	Short: "Export experiment results",
	Long: `Export the results and quality metrics of an experiment.

Without an id the current experiment is exported.

Examples:
  mlab export                          # PDF of the current experiment
  mlab export 3f2a9c1e-... -f csv      # CSV to experiment-results.csv
  mlab export -f json -o -             # JSON to stdout`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

var (
	exportFormat string
	exportOutput string
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "pdf", "Export format: pdf, csv or json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", `Output file ("-" for stdout, default experiment-results.<format>)`)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		id, err := experimentIDArg(ctx, app, args)
		if err != nil {
			return err
		}
		report, err := buildReport(ctx, app, id)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := export.Write(&buf, format, report); err != nil {
			return err
		}

		path := exportOutput
		if path == "" {
			path = format.Filename()
		}
		if path == "-" {
			_, err := buf.WriteTo(cmd.OutOrStdout())
			return err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write export file: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %d results to %s\n", color.GreenString("Exported"), len(report.Results), path)
		return nil
	})
}

// buildReport fetches the experiment and, if available, its quality metrics.
func buildReport(ctx context.Context, app *AppContext, id string) (export.Report, error) {
	exp, err := app.Client.GetExperiment(ctx, id)
	if err != nil {
		return export.Report{}, err
	}
	report := export.Report{
		ExperimentID:   exp.ID,
		Name:           exp.Name,
		OriginalPrompt: exp.OriginalMessage,
		GeneratedAt:    time.Now(),
		Results:        exp.Results,
	}
	metrics, err := app.Client.QualityMetrics(ctx, id)
	if err != nil {
		app.Log.WithError(err).WithField("experiment_id", id).Warn("exporting without quality metrics")
	}
	report.Metrics = metrics
	return report, nil
}

