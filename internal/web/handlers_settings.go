package web

import (
	"net/http"
	"strings"

	"github.com/emiliopalmerini/mlab/internal/domain"
	"github.com/emiliopalmerini/mlab/internal/shared/middleware"
	"github.com/emiliopalmerini/mlab/internal/web/templates"
)

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var data templates.SettingsPageData
	keys, err := s.keys.List(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to list api keys")
		data.Error = err.Error()
	}
	stored := make(map[string]bool, len(keys))
	for _, k := range keys {
		stored[k.Provider] = true
		data.Keys = append(data.Keys, templates.KeyRow{
			Provider:    k.Provider,
			DisplayName: domain.ProviderDisplayName(k.Provider),
			Name:        k.Name,
			Masked:      k.Masked(),
		})
	}

	models, err := s.client.ListModels(ctx)
	if err != nil {
		s.log.WithError(err).Warn("failed to list models")
		if data.Error == "" {
			data.Error = err.Error()
		}
	}

	var providers []string
	seen := make(map[string]bool)
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			providers = append(providers, p)
		}
	}
	for _, m := range models {
		add(m.Provider)
	}
	for _, k := range keys {
		add(k.Provider)
	}

	for _, p := range providers {
		row := templates.ProviderRow{
			ID:       p,
			Name:     domain.ProviderDisplayName(p),
			NeedsKey: domain.ProviderNeedsAPIKey(p),
			Stored:   stored[p],
			Backend:  "unknown",
		}
		if row.NeedsKey {
			if ok, err := s.client.CheckAPIKey(ctx, p); err == nil {
				row.Backend = "no"
				if ok {
					row.Backend = "yes"
				}
			}
		}
		data.Providers = append(data.Providers, row)
	}

	s.render(w, r, templates.SettingsPage(data))
}

func (s *Server) handleAPIAddKey(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeActionError(w, r, "#key-error", &domain.ValidationError{Message: "invalid form data"})
		return
	}

	key := domain.APIKey{
		Provider: r.FormValue("provider"),
		Name:     strings.TrimSpace(r.FormValue("name")),
		Key:      r.FormValue("key"),
	}
	if err := s.keys.Add(r.Context(), key); err != nil {
		s.writeActionError(w, r, "#key-error", err)
		return
	}

	if middleware.IsHTMX(r) {
		redirect(w, r, "/settings")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleAPIDeleteKey(w http.ResponseWriter, r *http.Request) {
	if err := s.keys.Remove(r.Context(), r.PathValue("provider")); err != nil {
		s.writeActionError(w, r, "#key-error", err)
		return
	}

	if middleware.IsHTMX(r) {
		redirect(w, r, "/settings")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
