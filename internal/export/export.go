// Package export renders experiment results and quality metrics as PDF, CSV
// or JSON documents.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emiliopalmerini/mlab/internal/domain"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat maps a user supplied name to a Format. Empty means PDF.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatPDF, nil
	case FormatPDF, FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", &domain.ValidationError{Field: "format", Message: fmt.Sprintf("unsupported export format %q", s)}
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	default:
		return "application/pdf"
	}
}

// Filename is the download name for the report.
func (f Format) Filename() string {
	return "experiment-results." + string(f)
}

// Report is the exported view of one experiment.
type Report struct {
	ExperimentID   string                 `json:"experiment_id,omitempty"`
	Name           string                 `json:"name,omitempty"`
	OriginalPrompt string                 `json:"original_prompt,omitempty"`
	GeneratedAt    time.Time              `json:"generated_at"`
	Results        []domain.Result        `json:"results"`
	Metrics        []domain.QualityMetric `json:"metrics,omitempty"`
}

// Write renders r in format f.
func Write(w io.Writer, f Format, r Report) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	default:
		return WritePDF(w, r)
	}
}

func checkResults(f Format, r Report) error {
	if len(r.Results) == 0 {
		return &domain.ExportError{Format: string(f), Err: domain.ErrNoResults}
	}
	return nil
}

var csvHeader = []string{
	"experiment_id", "provider", "model", "temperature", "top_p",
	"tokens_used", "execution_time", "success", "error", "response",
}

// WriteCSV writes one row per result.
func WriteCSV(w io.Writer, r Report) error {
	if err := checkResults(FormatCSV, r); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return &domain.ExportError{Format: string(FormatCSV), Err: err}
	}
	for _, res := range r.Results {
		tokens := ""
		if res.TokensUsed != nil {
			tokens = strconv.Itoa(*res.TokensUsed)
		}
		errText := ""
		if res.Error != nil {
			errText = *res.Error
		}
		row := []string{
			r.ExperimentID, res.Provider, res.Model,
			strconv.FormatFloat(res.Temperature, 'f', -1, 64),
			strconv.FormatFloat(res.TopP, 'f', -1, 64),
			tokens,
			fmt.Sprintf("%.3f", res.ExecutionTime),
			strconv.FormatBool(res.Success),
			errText,
			res.Response,
		}
		if err := writer.Write(row); err != nil {
			return &domain.ExportError{Format: string(FormatCSV), Err: err}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return &domain.ExportError{Format: string(FormatCSV), Err: err}
	}
	return nil
}

// WriteJSON writes the whole report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	if err := checkResults(FormatJSON, r); err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		return &domain.ExportError{Format: string(FormatJSON), Err: err}
	}
	return nil
}
