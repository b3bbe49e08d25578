package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/emiliopalmerini/mlab/internal/domain"
	"github.com/emiliopalmerini/mlab/internal/export"
)

// handleAPIExport downloads the results of the current experiment. The
// document is rendered into memory first so failures still get a status code.
func (s *Server) handleAPIExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.exportError(w, r, http.StatusBadRequest, errorBody{Error: err.Error(), Field: "format"})
		return
	}

	snap := s.store.Snapshot()
	report := export.Report{
		ExperimentID:   snap.CurrentExperimentID,
		OriginalPrompt: snap.OriginalPrompt,
		GeneratedAt:    s.now(),
		Results:        snap.Results,
	}
	if snap.StatusData != nil {
		report.Name = snap.StatusData.Name
	}

	if len(report.Results) > 0 && report.ExperimentID != "" {
		metrics, err := s.client.QualityMetrics(ctx, report.ExperimentID)
		if err != nil {
			s.log.WithError(err).WithField("experiment_id", report.ExperimentID).Warn("exporting without quality metrics")
		}
		report.Metrics = metrics
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, report); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrNoResults) {
			status = http.StatusConflict
		} else {
			s.log.WithError(err).WithField("format", format).Error("export failed")
		}
		s.exportError(w, r, status, errorBody{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// exportError answers browser navigations with an error page and API
// clients with JSON.
func (s *Server) exportError(w http.ResponseWriter, r *http.Request, status int, body errorBody) {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		s.renderError(w, r, status, "Export failed", body.Error)
		return
	}
	writeJSON(w, status, body)
}
