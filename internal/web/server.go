package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/emiliopalmerini/mlab/internal/apikeys"
	"github.com/emiliopalmerini/mlab/internal/ports"
	"github.com/emiliopalmerini/mlab/internal/shared/middleware"
	"github.com/emiliopalmerini/mlab/internal/state"
	"github.com/emiliopalmerini/mlab/internal/workflow"
)

const shutdownTimeout = 5 * time.Second

// Poller is the lifecycle surface of the polling controller owned by the server.
type Poller interface {
	Close()
	Wait()
}

// Deps are the collaborators of the dashboard server.
type Deps struct {
	Client ports.ExperimentClient
	Store  *state.Store
	Flow   *workflow.Service
	Keys   *apikeys.Keyring
	Poller Poller
	Log    logrus.FieldLogger
	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	router *http.ServeMux
	port   int
	client ports.ExperimentClient
	store  *state.Store
	flow   *workflow.Service
	keys   *apikeys.Keyring
	poller Poller
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewServer(port int, deps Deps) *Server {
	s := &Server{
		router: http.NewServeMux(),
		port:   port,
		client: deps.Client,
		store:  deps.Store,
		flow:   deps.Flow,
		keys:   deps.Keys,
		poller: deps.Poller,
		log:    deps.Log,
		now:    deps.Now,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Pages
	s.router.HandleFunc("GET /{$}", s.handleChat)
	s.router.HandleFunc("GET /experiments", s.handleExperiments)
	s.router.HandleFunc("GET /experiments/{id}", s.handleExperimentDetail)
	s.router.HandleFunc("GET /settings", s.handleSettings)

	// Experiment actions
	s.router.HandleFunc("POST /api/generate", s.handleAPIGenerate)
	s.router.HandleFunc("GET /api/status", s.handleAPIStatus)
	s.router.HandleFunc("POST /api/cancel", s.handleAPICancel)
	s.router.HandleFunc("POST /api/reset", s.handleAPIReset)

	// API keys
	s.router.HandleFunc("POST /api/keys", s.handleAPIAddKey)
	s.router.HandleFunc("DELETE /api/keys/{provider}", s.handleAPIDeleteKey)

	// Export
	s.router.HandleFunc("GET /api/export", s.handleAPIExport)
}

// Handler returns the router wrapped in the request middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = middleware.HTMX(h)
	h = middleware.RequestLogger(s.log)(h)
	h = chimw.Recoverer(h)
	h = chimw.RealIP(h)
	h = chimw.RequestID(h)
	return h
}

// Start serves until ctx is cancelled, then shuts the HTTP server down and
// stops every polling session.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.WithField("port", s.port).Infof("Starting server at http://localhost:%d", s.port)

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Error("server shutdown error")
		}
	}()

	err := server.ListenAndServe()
	if s.poller != nil {
		s.poller.Close()
		s.poller.Wait()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil // Graceful shutdown
	}
	return err
}
