package web

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/emiliopalmerini/mlab/internal/domain"
	"github.com/emiliopalmerini/mlab/internal/shared/middleware"
	"github.com/emiliopalmerini/mlab/internal/state"
	"github.com/emiliopalmerini/mlab/internal/util"
	"github.com/emiliopalmerini/mlab/internal/web/templates"
	"github.com/emiliopalmerini/mlab/internal/workflow"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusBody is the JSON shape of GET /api/status.
type statusBody struct {
	ExperimentID   string                   `json:"experiment_id"`
	Loading        bool                     `json:"loading"`
	Polling        bool                     `json:"polling"`
	PollingError   string                   `json:"polling_error,omitempty"`
	OriginalPrompt string                   `json:"original_prompt,omitempty"`
	Status         *domain.ExperimentStatus `json:"status,omitempty"`
	Results        []domain.Result          `json:"results"`
}

func newStatusBody(snap state.Snapshot) statusBody {
	results := snap.Results
	if results == nil {
		results = []domain.Result{}
	}
	return statusBody{
		ExperimentID:   snap.CurrentExperimentID,
		Loading:        snap.Loading,
		Polling:        snap.Polling,
		PollingError:   snap.PollingError,
		OriginalPrompt: snap.OriginalPrompt,
		Status:         snap.StatusData,
		Results:        results,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps an action error to the HTTP status returned to API callers.
func errorStatus(err error) int {
	switch {
	case domain.IsValidationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrNoExperiment), errors.Is(err, domain.ErrNoResults):
		return http.StatusConflict
	case domain.IsNetworkError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeActionError reports err to the caller. htmx callers get an alert swapped
// into target with a 200 so htmx performs the swap; others get JSON.
func (s *Server) writeActionError(w http.ResponseWriter, r *http.Request, target string, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		s.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}

	if middleware.IsHTMX(r) {
		w.Header().Set("HX-Retarget", target)
		w.Header().Set("HX-Reswap", "innerHTML")
		s.render(w, r, templates.Alert(err.Error()))
		return
	}

	body := errorBody{Error: err.Error()}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	writeJSON(w, status, body)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		s.log.WithError(err).WithField("path", r.URL.Path).Error("failed to render template")
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, title, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ErrorPage(title, msg).Render(r.Context(), w); err != nil {
		s.log.WithError(err).Error("failed to render error page")
	}
}

// redirect navigates htmx callers with HX-Redirect and others with a 303.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	if middleware.IsHTMX(r) {
		w.Header().Set("HX-Redirect", to)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func statusView(snap state.Snapshot) templates.StatusView {
	v := templates.StatusView{
		ExperimentID: snap.CurrentExperimentID,
		Polling:      snap.Polling,
		Loading:      snap.Loading,
		Error:        snap.PollingError,
		Prompt:       snap.OriginalPrompt,
		Results:      resultViews(snap.Results),
	}
	if snap.StatusData != nil {
		v.Status = string(snap.StatusData.Status)
		v.Responses = len(snap.StatusData.Responses)
	}
	return v
}

func resultViews(results []domain.Result) []templates.ResultView {
	views := make([]templates.ResultView, len(results))
	for i, r := range results {
		views[i] = templates.ResultView{
			Provider:    domain.ProviderDisplayName(r.Provider),
			Model:       r.Model,
			Temperature: strconv.FormatFloat(r.Temperature, 'f', 2, 64),
			TopP:        strconv.FormatFloat(r.TopP, 'f', 2, 64),
			Response:    r.Response,
			Tokens:      util.FormatTokens(r.TokensUsed),
			Time:        util.FormatSeconds(r.ExecutionTime),
			Success:     r.Success,
		}
		if r.Error != nil {
			views[i].Error = *r.Error
		}
	}
	return views
}

// metricViews scales each plot so its largest absolute value fills the chart.
func metricViews(metrics []domain.QualityMetric) []templates.MetricView {
	views := make([]templates.MetricView, len(metrics))
	for i, m := range metrics {
		points := m.Plot.Points()
		peak := 0.0
		for _, p := range points {
			peak = math.Max(peak, math.Abs(p.Value))
		}
		bars := make([]templates.BarView, len(points))
		for j, p := range points {
			pct := 0
			if peak > 0 {
				pct = int(math.Round(math.Abs(p.Value) / peak * 100))
			}
			bars[j] = templates.BarView{
				Label:     p.Label,
				Value:     strconv.FormatFloat(p.Value, 'f', 2, 64),
				HeightPct: pct,
			}
		}
		views[i] = templates.MetricView{
			Name:        m.Name,
			Description: m.Description,
			XAxis:       m.Plot.XAxis,
			YAxis:       m.Plot.YAxis,
			Bars:        bars,
		}
	}
	return views
}

func modelOptions(models []domain.Model, selected []string) []templates.ModelOption {
	picked := make(map[string]bool, len(selected))
	for _, id := range selected {
		picked[id] = true
	}
	opts := make([]templates.ModelOption, len(models))
	for i, m := range models {
		opts[i] = templates.ModelOption{
			ID:       m.ID,
			Name:     m.Name,
			Provider: domain.ProviderDisplayName(m.Provider),
			Selected: picked[m.ID],
		}
	}
	return opts
}

func defaultFormValues() templates.FormValues {
	return templates.FormValues{
		Temperature: workflow.DefaultTemperature,
		TopP:        workflow.DefaultTopP,
		TempMin:     workflow.DefaultTemperatureRange[0],
		TempMax:     workflow.DefaultTemperatureRange[1],
		TopPMin:     workflow.DefaultTopPRange[0],
		TopPMax:     workflow.DefaultTopPRange[1],
	}
}

// parseSubmitInput reads the generate form. Blank numeric fields keep their
// defaults; malformed ones are validation errors.
func parseSubmitInput(r *http.Request) (workflow.SubmitInput, error) {
	if err := r.ParseForm(); err != nil {
		return workflow.SubmitInput{}, &domain.ValidationError{Message: "invalid form data"}
	}

	in := workflow.NewSubmitInput(r.FormValue("prompt"))
	for _, v := range r.Form["models"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				in.ModelIDs = append(in.ModelIDs, id)
			}
		}
	}
	in.MultiModel = r.FormValue("multi_model") == "true" || r.FormValue("multi_model") == "on"

	fields := []struct {
		name string
		dst  *float64
	}{
		{"temperature", &in.Temperature},
		{"top_p", &in.TopP},
		{"temp_min", &in.TemperatureRange[0]},
		{"temp_max", &in.TemperatureRange[1]},
		{"top_p_min", &in.TopPRange[0]},
		{"top_p_max", &in.TopPRange[1]},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(r.FormValue(f.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return in, &domain.ValidationError{Field: f.name, Message: "must be a number"}
		}
		*f.dst = v
	}
	return in, nil
}
