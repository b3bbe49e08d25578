package web

import (
	"errors"
	"net/http"

	"github.com/emiliopalmerini/mlab/internal/domain"
	"github.com/emiliopalmerini/mlab/internal/util"
	"github.com/emiliopalmerini/mlab/internal/web/templates"
)

func (s *Server) handleExperiments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var data templates.ExperimentsPageData
	experiments, err := s.client.ListExperiments(ctx)
	if err != nil {
		s.log.WithError(err).Warn("failed to list experiments")
		data.Error = err.Error()
	}

	current := s.store.CurrentExperimentID()
	for _, e := range experiments {
		data.Experiments = append(data.Experiments, templates.ExperimentRow{
			ID:      e.ID,
			Name:    e.Name,
			Created: util.FormatDateTime(e.CreatedTime()),
			Current: e.ID == current,
		})
	}

	s.render(w, r, templates.ExperimentsPage(data))
}

// handleExperimentDetail makes the experiment current before rendering it, so
// a running experiment keeps polling and export targets it.
func (s *Server) handleExperimentDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	experiment, err := s.client.GetExperiment(ctx, id)
	if err != nil {
		var ne *domain.NetworkError
		if errors.As(err, &ne) && ne.StatusCode == http.StatusNotFound {
			s.renderError(w, r, http.StatusNotFound, "Experiment not found", "No experiment with id "+id)
			return
		}
		s.log.WithError(err).WithField("experiment_id", id).Warn("failed to get experiment")
		s.renderError(w, r, http.StatusBadGateway, "Backend unavailable", err.Error())
		return
	}

	if err := s.flow.Select(ctx, id); err != nil {
		s.renderError(w, r, errorStatus(err), "Invalid experiment", err.Error())
		return
	}

	data := templates.ExperimentDetailData{
		ID:      experiment.ID,
		Name:    experiment.Name,
		Prompt:  experiment.OriginalMessage,
		Created: util.FormatDateTime(experiment.CreatedTime()),
		Results: resultViews(experiment.Results),
		Status:  statusView(s.store.Snapshot()),
	}
	if data.Name == "" {
		data.Name = id
	}

	metrics, err := s.client.QualityMetrics(ctx, id)
	if err != nil {
		s.log.WithError(err).WithField("experiment_id", id).Warn("failed to get quality metrics")
		data.MetricsError = err.Error()
	}
	data.Metrics = metricViews(metrics)

	s.render(w, r, templates.ExperimentDetailPage(data))
}
