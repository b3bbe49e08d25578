package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/emiliopalmerini/mlab/internal/domain"
	"github.com/emiliopalmerini/mlab/internal/util"
)

const responsePreview = 200

func statusColor(s domain.StatusValue) func(format string, a ...interface{}) string {
	switch s {
	case domain.StatusCompleted:
		return color.GreenString
	case domain.StatusFailed:
		return color.RedString
	case domain.StatusCancelled:
		return color.YellowString
	default:
		return color.CyanString
	}
}

func printStatus(w io.Writer, status *domain.ExperimentStatus) {
	fmt.Fprintf(w, "Experiment: %s\n", status.ID)
	if status.Name != "" {
		fmt.Fprintf(w, "Name:       %s\n", status.Name)
	}
	fmt.Fprintf(w, "Status:     %s\n", statusColor(status.Status)("%s", status.Status))
	fmt.Fprintf(w, "Responses:  %d\n", len(status.Responses))
	if status.OriginalMessage != "" {
		fmt.Fprintf(w, "Prompt:     %s\n", util.Truncate(status.OriginalMessage, responsePreview))
	}
	if status.ErrorMessage != nil && *status.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:      %s\n", color.RedString(*status.ErrorMessage))
	}
}

// printResults renders results as a table. With full set, response text is
// printed in full below the table.
func printResults(w io.Writer, results []domain.Result, full bool) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results yet")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPROVIDER\tMODEL\tTEMP\tTOP_P\tTOKENS\tTIME\tRESPONSE")
	fmt.Fprintln(tw, "-\t--------\t-----\t----\t-----\t------\t----\t--------")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.2f\t%s\t%s\t%s\n",
			i+1,
			domain.ProviderDisplayName(r.Provider),
			r.Model,
			r.Temperature,
			r.TopP,
			util.FormatTokens(r.TokensUsed),
			util.FormatSeconds(r.ExecutionTime),
			resultPreview(r, 60),
		)
	}
	_ = tw.Flush()

	if !full {
		return
	}
	for i, r := range results {
		fmt.Fprintf(w, "\n%s\n", color.New(color.Bold).Sprintf("[%d] %s (t=%.2f, p=%.2f)", i+1, r.Model, r.Temperature, r.TopP))
		if !r.Success && r.Error != nil {
			fmt.Fprintln(w, color.RedString(*r.Error))
			continue
		}
		if r.Response == "" {
			fmt.Fprintln(w, "No response available")
			continue
		}
		fmt.Fprintln(w, r.Response)
	}
}

func resultPreview(r domain.Result, n int) string {
	if !r.Success && r.Error != nil {
		return color.RedString("error: %s", util.Truncate(oneLine(*r.Error), n))
	}
	if r.Response == "" {
		return "-"
	}
	return util.Truncate(oneLine(r.Response), n)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func printModels(w io.Writer, models []domain.Model) {
	if len(models) == 0 {
		fmt.Fprintln(w, "No models available")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPROVIDER\tNEEDS KEY")
	fmt.Fprintln(tw, "--\t----\t--------\t---------")
	for _, m := range models {
		needs := "no"
		if domain.ProviderNeedsAPIKey(m.Provider) {
			needs = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Name, domain.ProviderDisplayName(m.Provider), needs)
	}
	_ = tw.Flush()
}

func printExperiments(w io.Writer, experiments []domain.ExperimentSummary, current string) {
	if len(experiments) == 0 {
		fmt.Fprintln(w, "No experiments found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED\t")
	fmt.Fprintln(tw, "--\t----\t-------\t")
	for _, e := range experiments {
		marker := ""
		if e.ID == current {
			marker = color.CyanString("current")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Name, util.FormatDateTime(e.CreatedTime()), marker)
	}
	_ = tw.Flush()
}

func printMetrics(w io.Writer, metrics []domain.QualityMetric) {
	if len(metrics) == 0 {
		fmt.Fprintln(w, "No metrics available")
		return
	}
	for i, m := range metrics {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, color.New(color.Bold).Sprint(m.Name))
		if m.Description != "" {
			fmt.Fprintln(w, m.Description)
		}
		points := m.Plot.Points()
		if len(points) == 0 {
			fmt.Fprintln(w, "  no data")
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, p := range points {
			fmt.Fprintf(tw, "  %s\t%.3f\n", p.Label, p.Value)
		}
		_ = tw.Flush()
	}
}

func printKeys(w io.Writer, keys []domain.APIKey) {
	if len(keys) == 0 {
		fmt.Fprintln(w, "No API keys stored")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tNAME\tKEY")
	fmt.Fprintln(tw, "--------\t----\t---")
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", k.Provider, k.Name, k.Masked())
	}
	_ = tw.Flush()
}
