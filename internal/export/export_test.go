package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emiliopalmerini/mlab/internal/domain"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func sampleReport() Report {
	return Report{
		ExperimentID:   "exp-1",
		Name:           "capitals",
		OriginalPrompt: "What is the capital of France?",
		GeneratedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Results: []domain.Result{
			{Provider: "openai", Model: "gpt-4o", Temperature: 0.1, TopP: 0.9, Response: "Paris, naturally.", TokensUsed: intPtr(12), ExecutionTime: 0.8, Success: true},
			{Provider: "anthropic", Model: "claude", Temperature: 0.5, TopP: 0.9, ExecutionTime: 1.2, Success: false, Error: strPtr("rate limited")},
		},
		Metrics: []domain.QualityMetric{
			{
				Name:        "Readability Ease",
				Description: "Flesch reading ease",
				Plot:        domain.Plot{XAxis: "Responses", YAxis: "Ease Score", Data: []float64{70.5, 42}, Labels: []string{"gpt-4o", "claude"}},
			},
			{Name: "Empty", Description: "no data"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatPDF, false},
		{"PDF", FormatPDF, false},
		{" csv ", FormatCSV, false},
		{"json", FormatJSON, false},
		{"xlsx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if FormatCSV.ContentType() != "text/csv" || FormatPDF.Filename() != "experiment-results.pdf" {
		t.Error("unexpected content type or filename")
	}
}

func TestWrite_EmptyResults(t *testing.T) {
	for _, f := range []Format{FormatPDF, FormatCSV, FormatJSON} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			err := Write(&buf, f, Report{ExperimentID: "exp-1"})

			var ee *domain.ExportError
			if !errors.As(err, &ee) {
				t.Fatalf("expected ExportError, got %v", err)
			}
			if ee.Format != string(f) || !errors.Is(err, domain.ErrNoResults) {
				t.Errorf("unexpected export error %v", err)
			}
			if buf.Len() != 0 {
				t.Error("expected nothing written")
			}
		})
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, sampleReport()); err != nil {
		t.Fatalf("WritePDF failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("expected PDF header, got %q", buf.Bytes()[:min(8, buf.Len())])
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleReport()); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][5] != "12" || rows[1][9] != "Paris, naturally." {
		t.Errorf("unexpected first row %v", rows[1])
	}
	if rows[2][5] != "" || rows[2][7] != "false" || rows[2][8] != "rate limited" {
		t.Errorf("unexpected second row %v", rows[2])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleReport()); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var got Report
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if got.ExperimentID != "exp-1" || len(got.Results) != 2 || len(got.Metrics) != 2 {
		t.Errorf("unexpected report %+v", got)
	}
}
