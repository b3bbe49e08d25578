// Package workflow implements the user intents shared by the web and CLI views:
// submitting a prompt, selecting or resuming an experiment, cancelling and
// resetting.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/emiliopalmerini/mlab/internal/apikeys"
	"github.com/emiliopalmerini/mlab/internal/domain"
	"github.com/emiliopalmerini/mlab/internal/polling"
	"github.com/emiliopalmerini/mlab/internal/ports"
	"github.com/emiliopalmerini/mlab/internal/state"
)

// ErrNoExperiment is returned by actions that need a current experiment.
var ErrNoExperiment = errors.New("no current experiment")

// Default sampling parameters of a new prompt.
var (
	DefaultTemperatureRange = [2]float64{0.1, 0.5}
	DefaultTopPRange        = [2]float64{0.8, 1.0}
)

const (
	DefaultTemperature = 0.5
	DefaultTopP        = 0.9
)

// Poller is the subset of the polling controller used here.
type Poller interface {
	Start(ctx context.Context, experimentID string, cb polling.Callbacks) bool
	Stop(experimentID string)
}

// SubmitInput is one prompt submission.
//
// In single-LLM mode the temperature and top_p ranges are sent as [lo, hi]
// and the backend sweeps them. With MultiModel set, one temperature and one
// top_p are sent for every selected model.
type SubmitInput struct {
	Prompt           string
	ModelIDs         []string
	MultiModel       bool
	Temperature      float64
	TopP             float64
	TemperatureRange [2]float64
	TopPRange        [2]float64
}

// NewSubmitInput returns an input with the default parameters.
func NewSubmitInput(prompt string, modelIDs ...string) SubmitInput {
	return SubmitInput{
		Prompt:           prompt,
		ModelIDs:         modelIDs,
		Temperature:      DefaultTemperature,
		TopP:             DefaultTopP,
		TemperatureRange: DefaultTemperatureRange,
		TopPRange:        DefaultTopPRange,
	}
}

// Service coordinates the backend client, the shared store and the poller.
type Service struct {
	ctx    context.Context
	client ports.ExperimentClient
	store  *state.Store
	poller Poller
	keys   *apikeys.Keyring
	log    logrus.FieldLogger
	cb     polling.Callbacks
}

type Option func(*Service)

func WithKeyring(k *apikeys.Keyring) Option {
	return func(s *Service) { s.keys = k }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCallbacks forwards polling callbacks to the owning view.
func WithCallbacks(cb polling.Callbacks) Option {
	return func(s *Service) { s.cb = cb }
}

// New creates a Service. Polling sessions live as long as ctx, not as long
// as the request that started them.
func New(ctx context.Context, client ports.ExperimentClient, store *state.Store, poller Poller, opts ...Option) *Service {
	s := &Service{
		ctx:    ctx,
		client: client,
		store:  store,
		poller: poller,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildRequest turns input into a validated generate request. models is the
// backend catalogue used to resolve providers; unknown ids keep an empty one.
func (s *Service) BuildRequest(ctx context.Context, in SubmitInput, models []domain.Model) (domain.GenerateRequest, error) {
	req, err := newRequest(in)
	if err != nil {
		return req, err
	}
	return s.resolveProviders(ctx, req, models)
}

// newRequest builds and validates the request from input alone, so invalid
// prompts are rejected before any backend call.
func newRequest(in SubmitInput) (domain.GenerateRequest, error) {
	ids := make([]string, 0, len(in.ModelIDs))
	for _, id := range in.ModelIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	req := domain.GenerateRequest{
		Prompt:    in.Prompt,
		SingleLLM: !in.MultiModel,
		Models:    ids,
	}
	if in.MultiModel {
		req.Temperatures = []float64{in.Temperature}
		req.TopPs = []float64{in.TopP}
	} else {
		if in.TemperatureRange[0] > in.TemperatureRange[1] {
			return req, &domain.ValidationError{Field: "temperatures", Message: "range start must not exceed range end"}
		}
		if in.TopPRange[0] > in.TopPRange[1] {
			return req, &domain.ValidationError{Field: "top_ps", Message: "range start must not exceed range end"}
		}
		req.Temperatures = in.TemperatureRange[:]
		req.TopPs = in.TopPRange[:]
	}
	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

// resolveProviders sets mock mode and attaches the stored keys of the
// providers behind req.Models.
func (s *Service) resolveProviders(ctx context.Context, req domain.GenerateRequest, models []domain.Model) (domain.GenerateRequest, error) {
	providers := providersFor(req.Models, models)
	req.MockMode = allMock(providers)
	if s.keys == nil {
		return req, nil
	}

	missing, err := s.keys.MissingProviders(ctx, providers)
	if err != nil {
		return req, err
	}
	if len(missing) > 0 {
		names := make([]string, len(missing))
		for i, p := range missing {
			names[i] = domain.ProviderDisplayName(p)
		}
		return req, &domain.ValidationError{
			Field:   "api_keys",
			Message: "missing API key for " + strings.Join(names, ", "),
		}
	}

	all, err := s.keys.AsMap(ctx)
	if err != nil {
		return req, err
	}
	for _, p := range providers {
		if key, ok := all[p]; ok {
			if req.APIKeys == nil {
				req.APIKeys = make(map[string]string)
			}
			req.APIKeys[p] = key
		}
	}
	return req, nil
}

// Submit validates and sends a prompt, then starts polling the new experiment.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*domain.GenerateResponse, error) {
	req, err := newRequest(in)
	if err != nil {
		return nil, err
	}
	models, err := s.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	if req, err = s.resolveProviders(ctx, req, models); err != nil {
		return nil, err
	}

	s.store.SetLoading(true)
	resp, err := s.client.Generate(ctx, req)
	if err != nil {
		s.store.SetLoading(false)
		s.log.WithError(err).Warn("generate request failed")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"experiment_id": resp.ExperimentID,
		"models":        len(req.Models),
		"mock_mode":     req.MockMode,
	}).Info("experiment submitted")

	s.attach(resp.ExperimentID)
	return resp, nil
}

// Select makes id the current experiment and polls it until terminal.
// A finished experiment settles after a single fetch.
func (s *Service) Select(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &domain.ValidationError{Field: "experiment_id", Message: "experiment id is required"}
	}
	if s.store.CurrentExperimentID() == id && s.store.Polling() {
		return nil
	}
	s.attach(id)
	return nil
}

// Resume re-attaches polling to the persisted experiment id, if any.
func (s *Service) Resume(ctx context.Context) (string, error) {
	id, err := s.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load session state: %w", err)
	}
	if id == "" {
		return "", nil
	}
	s.startPolling(id)
	return id, nil
}

// Cancel asks the backend to cancel the current experiment. Polling carries
// on until the backend reports the cancelled status.
func (s *Service) Cancel(ctx context.Context) (*domain.CancelResponse, error) {
	id := s.store.CurrentExperimentID()
	if id == "" {
		return nil, ErrNoExperiment
	}
	resp, err := s.client.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"experiment_id": id,
		"cancelled":     resp.Cancelled,
	}).Info("cancel requested")
	return resp, nil
}

// Reset stops polling and clears the state for a new prompt.
func (s *Service) Reset(ctx context.Context) {
	if id := s.store.CurrentExperimentID(); id != "" {
		s.poller.Stop(id)
	}
	s.store.Reset()
}

func (s *Service) attach(id string) {
	if prev := s.store.CurrentExperimentID(); prev != "" && prev != id {
		s.poller.Stop(prev)
	}
	s.store.SetResults(nil)
	s.store.SetStatusData(nil)
	s.store.SetOriginalPrompt("")
	s.store.SetCurrentExperimentID(id)
	s.startPolling(id)
}

func (s *Service) startPolling(id string) {
	if !s.poller.Start(s.ctx, id, s.cb) {
		s.log.WithField("experiment_id", id).Debug("polling already active")
	}
}

func providersFor(ids []string, models []domain.Model) []string {
	byID := make(map[string]string, len(models))
	for _, m := range models {
		byID[m.ID] = m.Provider
	}
	providers := make([]string, len(ids))
	for i, id := range ids {
		providers[i] = byID[id]
	}
	return providers
}

func allMock(providers []string) bool {
	if len(providers) == 0 {
		return false
	}
	for _, p := range providers {
		if p != domain.ProviderMock {
			return false
		}
	}
	return true
}
