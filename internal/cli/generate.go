package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mlab/internal/workflow"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Submit a prompt and follow the experiment",
	Long: `Submit a prompt to one or more models and follow the experiment until it
finishes.

In the default single-LLM mode the backend sweeps the temperature and top_p
ranges. With --multi every model runs once with --temperature and --top-p.
Use "-" as the prompt to read it from stdin.

Examples:
  mlab generate "Capital of France?" -m gpt-4o
  mlab generate "Summarise this" -m gpt-4o -m claude-3-5-sonnet --multi --temperature 0.7
  cat prompt.txt | mlab generate - -m mock-llm --plain`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

var (
	genModels      []string
	genMulti       bool
	genTemperature float64
	genTopP        float64
	genTempRange   []float64
	genTopPRange   []float64
	genDetach      bool
	genPlain       bool
)

func init() {
	rootCmd.AddCommand(generateCmd)
	f := generateCmd.Flags()
	f.StringSliceVarP(&genModels, "model", "m", nil, "Model id (repeatable)")
	f.BoolVar(&genMulti, "multi", false, "Multi-model mode: one temperature and top_p for every model")
	f.Float64Var(&genTemperature, "temperature", workflow.DefaultTemperature, "Temperature in multi-model mode")
	f.Float64Var(&genTopP, "top-p", workflow.DefaultTopP, "top_p in multi-model mode")
	f.Float64SliceVar(&genTempRange, "temp-range", []float64{workflow.DefaultTemperatureRange[0], workflow.DefaultTemperatureRange[1]}, "Temperature range lo,hi in single-LLM mode")
	f.Float64SliceVar(&genTopPRange, "top-p-range", []float64{workflow.DefaultTopPRange[0], workflow.DefaultTopPRange[1]}, "top_p range lo,hi in single-LLM mode")
	f.BoolVar(&genDetach, "detach", false, "Print the experiment id and exit without following it")
	f.BoolVar(&genPlain, "plain", false, "Follow without the interactive view and print results at the end")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	in, err := buildSubmitInput(prompt)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		out := cmd.OutOrStdout()
		resp, err := app.Flow.Submit(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s experiment %s\n", color.GreenString("Submitted"), resp.ExperimentID)
		if genDetach {
			return nil
		}
		if genPlain {
			return followPlain(ctx, app, out)
		}
		return followInteractive(ctx, app, out, true)
	})
}

func buildSubmitInput(prompt string) (workflow.SubmitInput, error) {
	in := workflow.NewSubmitInput(prompt, genModels...)
	in.MultiModel = genMulti
	in.Temperature = genTemperature
	in.TopP = genTopP

	var err error
	if in.TemperatureRange, err = toRange("temp-range", genTempRange); err != nil {
		return in, err
	}
	if in.TopPRange, err = toRange("top-p-range", genTopPRange); err != nil {
		return in, err
	}
	return in, nil
}

func toRange(flag string, v []float64) ([2]float64, error) {
	if len(v) != 2 {
		return [2]float64{}, fmt.Errorf("--%s needs exactly two values, got %d", flag, len(v))
	}
	return [2]float64{v[0], v[1]}, nil
}

// readPrompt takes the prompt from args, or from stdin when it is "-".
func readPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("a prompt is required")
	}
	if args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
