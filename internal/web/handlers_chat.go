package web

import (
	"net/http"

	"github.com/emiliopalmerini/mlab/internal/shared/middleware"
	"github.com/emiliopalmerini/mlab/internal/web/templates"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data := templates.ChatPageData{
		Form:   defaultFormValues(),
		Status: statusView(s.store.Snapshot()),
	}
	models, err := s.client.ListModels(ctx)
	if err != nil {
		s.log.WithError(err).Warn("failed to list models")
		data.ModelsError = err.Error()
	}
	data.Models = modelOptions(models, nil)

	s.render(w, r, templates.ChatPage(data))
}

func (s *Server) handleAPIGenerate(w http.ResponseWriter, r *http.Request) {
	in, err := parseSubmitInput(r)
	if err != nil {
		s.writeActionError(w, r, "#form-error", err)
		return
	}

	resp, err := s.flow.Submit(r.Context(), in)
	if err != nil {
		s.writeActionError(w, r, "#form-error", err)
		return
	}

	if middleware.IsHTMX(r) {
		s.render(w, r, templates.StatusPanel(statusView(s.store.Snapshot())))
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	if middleware.IsHTMX(r) {
		s.render(w, r, templates.StatusPanel(statusView(snap)))
		return
	}
	writeJSON(w, http.StatusOK, newStatusBody(snap))
}

func (s *Server) handleAPICancel(w http.ResponseWriter, r *http.Request) {
	resp, err := s.flow.Cancel(r.Context())
	if err != nil {
		s.writeActionError(w, r, "#status", err)
		return
	}

	if middleware.IsHTMX(r) {
		s.render(w, r, templates.StatusPanel(statusView(s.store.Snapshot())))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPIReset(w http.ResponseWriter, r *http.Request) {
	s.flow.Reset(r.Context())
	redirect(w, r, "/")
}
