package export

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/emiliopalmerini/mlab/internal/domain"
	"github.com/emiliopalmerini/mlab/internal/util"
)

const (
	pageMargin  = 15.0
	chartWidth  = 120.0
	chartHeight = 40.0
)

var barColors = [][3]int{
	{99, 102, 241},
	{34, 197, 94},
	{245, 158, 11},
	{239, 68, 68},
	{139, 92, 246},
	{6, 182, 212},
}

// WritePDF renders the report as a PDF document: a header, one block per
// result and a bar chart per quality metric.
func WritePDF(w io.Writer, r Report) error {
	if err := checkResults(FormatPDF, r); err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle("LLM Experiment Results", true)
	pdf.SetCreator("mlab", true)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	writeHeader(pdf, tr, r)
	writeResults(pdf, tr, r.Results)
	if len(r.Metrics) > 0 {
		writeMetrics(pdf, tr, r.Metrics)
	}

	if err := pdf.Output(w); err != nil {
		return &domain.ExportError{Format: string(FormatPDF), Err: err}
	}
	return nil
}

func writeHeader(pdf *fpdf.Fpdf, tr func(string) string, r Report) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(17, 24, 39)
	pdf.CellFormat(0, 10, "LLM Experiment Results", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(75, 85, 99)
	if r.ExperimentID != "" {
		pdf.CellFormat(0, 6, tr("Experiment ID: "+r.ExperimentID), "", 1, "L", false, 0, "")
	}
	if r.Name != "" {
		pdf.CellFormat(0, 6, tr("Name: "+r.Name), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, "Generated on "+r.GeneratedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")

	if r.OriginalPrompt != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(17, 24, 39)
		pdf.CellFormat(0, 7, "Prompt", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(r.OriginalPrompt), "", "L", false)
	}
	pdf.Ln(6)
}

func writeResults(pdf *fpdf.Fpdf, tr func(string) string, results []domain.Result) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(17, 24, 39)
	pdf.CellFormat(0, 8, fmt.Sprintf("Responses (%d)", len(results)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for _, res := range results {
		pdf.SetFillColor(243, 244, 246)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(17, 24, 39)
		title := fmt.Sprintf("%s  (%s)", res.Model, domain.ProviderDisplayName(res.Provider))
		pdf.CellFormat(0, 7, tr(title), "", 1, "L", true, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(75, 85, 99)
		meta := fmt.Sprintf("temperature: %s   top_p: %s   tokens: %s   time: %s",
			strconv.FormatFloat(res.Temperature, 'f', -1, 64),
			strconv.FormatFloat(res.TopP, 'f', -1, 64),
			util.FormatTokens(res.TokensUsed),
			util.FormatSeconds(res.ExecutionTime),
		)
		pdf.CellFormat(0, 6, meta, "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(17, 24, 39)
		switch {
		case !res.Success && res.Error != nil:
			pdf.SetTextColor(185, 28, 28)
			pdf.MultiCell(0, 5, tr("Error: "+*res.Error), "", "L", false)
		case res.Response == "":
			pdf.MultiCell(0, 5, "No response available", "", "L", false)
		default:
			pdf.MultiCell(0, 5, tr(res.Response), "", "L", false)
		}
		pdf.Ln(4)
	}
}

func writeMetrics(pdf *fpdf.Fpdf, tr func(string) string, metrics []domain.QualityMetric) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(17, 24, 39)
	pdf.CellFormat(0, 8, "Quality metrics", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for _, m := range metrics {
		points := m.Plot.Points()
		needed := 20.0
		if len(points) > 0 {
			needed += chartHeight + 15
		}
		_, pageH := pdf.GetPageSize()
		if pdf.GetY()+needed > pageH-pageMargin {
			pdf.AddPage()
		}

		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(17, 24, 39)
		pdf.CellFormat(0, 7, tr(m.Name), "", 1, "L", false, 0, "")
		if m.Description != "" {
			pdf.SetFont("Helvetica", "", 9)
			pdf.SetTextColor(75, 85, 99)
			pdf.MultiCell(0, 5, tr(m.Description), "", "L", false)
		}
		if len(points) == 0 {
			pdf.Ln(4)
			continue
		}
		drawBarChart(pdf, tr, m.Plot, points)
		pdf.Ln(6)
	}
}

func drawBarChart(pdf *fpdf.Fpdf, tr func(string) string, plot domain.Plot, points []domain.PlotPoint) {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	maxV, minV := slices.Max(values), slices.Min(values)

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(75, 85, 99)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s vs %s", plot.XAxis, plot.YAxis)), "", 1, "L", false, 0, "")

	x0, y0 := pdf.GetX(), pdf.GetY()
	base := y0 + chartHeight
	slot := chartWidth / float64(len(points))
	pdf.SetDrawColor(229, 231, 235)
	pdf.Line(x0, base, x0+chartWidth, base)

	for i, p := range points {
		h := 0.0
		if maxV > 0 && p.Value > 0 {
			h = p.Value / maxV * (chartHeight - 8)
		}
		c := barColors[i%len(barColors)]
		pdf.SetFillColor(c[0], c[1], c[2])
		x := x0 + float64(i)*slot + 1
		pdf.Rect(x, base-h, slot-2, h, "F")

		pdf.SetFont("Helvetica", "", 6)
		pdf.SetXY(x, base-h-4)
		pdf.CellFormat(slot-2, 4, strconv.FormatFloat(p.Value, 'f', 1, 64), "", 0, "C", false, 0, "")
		pdf.SetXY(x, base+1)
		pdf.CellFormat(slot-2, 4, tr(util.Truncate(p.Label, 12)), "", 0, "C", false, 0, "")
	}

	pdf.SetXY(x0, base+6)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 5, fmt.Sprintf("Max: %.2f | Min: %.2f", maxV, minV), "", 1, "L", false, 0, "")
}
