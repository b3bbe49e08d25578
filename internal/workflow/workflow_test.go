package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/emiliopalmerini/mlab/internal/apikeys"
	"github.com/emiliopalmerini/mlab/internal/domain"
	"github.com/emiliopalmerini/mlab/internal/polling"
	"github.com/emiliopalmerini/mlab/internal/state"
)

type mockClient struct {
	FetchStatusFunc     func(ctx context.Context, id string) (*domain.ExperimentStatus, error)
	GenerateFunc        func(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error)
	CancelFunc          func(ctx context.Context, id string) (*domain.CancelResponse, error)
	ListModelsFunc      func(ctx context.Context) ([]domain.Model, error)
	ListExperimentsFunc func(ctx context.Context) ([]domain.ExperimentSummary, error)
	GetExperimentFunc   func(ctx context.Context, id string) (*domain.ExperimentDetail, error)
	QualityMetricsFunc  func(ctx context.Context, id string) ([]domain.QualityMetric, error)
	CheckAPIKeyFunc     func(ctx context.Context, provider string) (bool, error)
}

func (m *mockClient) FetchStatus(ctx context.Context, id string) (*domain.ExperimentStatus, error) {
	if m.FetchStatusFunc != nil {
		return m.FetchStatusFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockClient) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &domain.GenerateResponse{ExperimentID: "exp-new", Status: "pending"}, nil
}

func (m *mockClient) Cancel(ctx context.Context, id string) (*domain.CancelResponse, error) {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, id)
	}
	return &domain.CancelResponse{Cancelled: true}, nil
}

func (m *mockClient) ListModels(ctx context.Context) ([]domain.Model, error) {
	if m.ListModelsFunc != nil {
		return m.ListModelsFunc(ctx)
	}
	return []domain.Model{
		{ID: "gpt-4o", Name: "GPT-4o", Provider: "openai"},
		{ID: "claude", Name: "Claude", Provider: "anthropic"},
		{ID: "llama3", Name: "Llama 3", Provider: "ollama"},
		{ID: "mock-llm", Name: "Mock LLM", Provider: "mock"},
	}, nil
}

func (m *mockClient) ListExperiments(ctx context.Context) ([]domain.ExperimentSummary, error) {
	if m.ListExperimentsFunc != nil {
		return m.ListExperimentsFunc(ctx)
	}
	return nil, nil
}

func (m *mockClient) GetExperiment(ctx context.Context, id string) (*domain.ExperimentDetail, error) {
	if m.GetExperimentFunc != nil {
		return m.GetExperimentFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockClient) QualityMetrics(ctx context.Context, id string) ([]domain.QualityMetric, error) {
	if m.QualityMetricsFunc != nil {
		return m.QualityMetricsFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockClient) CheckAPIKey(ctx context.Context, provider string) (bool, error) {
	if m.CheckAPIKeyFunc != nil {
		return m.CheckAPIKeyFunc(ctx, provider)
	}
	return false, nil
}

type mockPoller struct {
	started []string
	stopped []string
	active  map[string]bool
}

func newMockPoller() *mockPoller {
	return &mockPoller{active: make(map[string]bool)}
}

func (p *mockPoller) Start(ctx context.Context, id string, cb polling.Callbacks) bool {
	if p.active[id] {
		return false
	}
	p.active[id] = true
	p.started = append(p.started, id)
	return true
}

func (p *mockPoller) Stop(id string) {
	p.stopped = append(p.stopped, id)
	delete(p.active, id)
}

type keyRepo struct {
	keys map[string]domain.APIKey
}

func (r *keyRepo) Upsert(ctx context.Context, key domain.APIKey) error {
	r.keys[key.Provider] = key
	return nil
}

func (r *keyRepo) Get(ctx context.Context, provider string) (*domain.APIKey, error) {
	if k, ok := r.keys[provider]; ok {
		return &k, nil
	}
	return nil, nil
}

func (r *keyRepo) List(ctx context.Context) ([]domain.APIKey, error) {
	var out []domain.APIKey
	for _, k := range r.keys {
		out = append(out, k)
	}
	return out, nil
}

func (r *keyRepo) Delete(ctx context.Context, provider string) error {
	delete(r.keys, provider)
	return nil
}

type sessionRepo struct {
	id string
}

func (r *sessionRepo) GetCurrentExperimentID(ctx context.Context) (string, error) { return r.id, nil }

func (r *sessionRepo) SetCurrentExperimentID(ctx context.Context, id string) error {
	r.id = id
	return nil
}

type fixture struct {
	svc     *Service
	client  *mockClient
	poller  *mockPoller
	store   *state.Store
	session *sessionRepo
}

func newFixture(keys ...domain.APIKey) *fixture {
	log, _ := test.NewNullLogger()
	repo := &keyRepo{keys: make(map[string]domain.APIKey)}
	for _, k := range keys {
		repo.keys[k.Provider] = k
	}
	f := &fixture{
		client:  &mockClient{},
		poller:  newMockPoller(),
		session: &sessionRepo{},
	}
	f.store = state.NewStore(f.session, log)
	f.svc = New(context.Background(), f.client, f.store, f.poller,
		WithKeyring(apikeys.NewKeyring(repo)), WithLogger(log))
	return f
}

func TestService_BuildRequestModes(t *testing.T) {
	f := newFixture(domain.APIKey{Provider: "openai", Key: "sk-1"})
	ctx := context.Background()
	models, _ := f.client.ListModels(ctx)

	single, err := f.svc.BuildRequest(ctx, NewSubmitInput("hi", "gpt-4o"), models)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if !single.SingleLLM || len(single.Temperatures) != 2 || single.Temperatures[1] != 0.5 || single.TopPs[0] != 0.8 {
		t.Errorf("unexpected single-LLM request %+v", single)
	}
	if single.APIKeys["openai"] != "sk-1" || single.MockMode {
		t.Errorf("unexpected keys or mock mode %+v", single)
	}

	in := NewSubmitInput("hi", "gpt-4o", "llama3")
	in.MultiModel = true
	multi, err := f.svc.BuildRequest(ctx, in, models)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if multi.SingleLLM || len(multi.Temperatures) != 1 || multi.Temperatures[0] != DefaultTemperature || multi.TopPs[0] != DefaultTopP {
		t.Errorf("unexpected multi-model request %+v", multi)
	}

	mock, err := f.svc.BuildRequest(ctx, NewSubmitInput("hi", "mock-llm"), models)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if !mock.MockMode || mock.APIKeys != nil {
		t.Errorf("expected mock request without keys, got %+v", mock)
	}
}

func TestService_BuildRequestValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	models, _ := f.client.ListModels(ctx)

	tests := []struct {
		name      string
		in        SubmitInput
		wantField string
	}{
		{"empty prompt", NewSubmitInput("  ", "llama3"), "prompt"},
		{"no models", NewSubmitInput("hi"), "models"},
		{"missing key", NewSubmitInput("hi", "claude"), "api_keys"},
		{"inverted range", func() SubmitInput {
			in := NewSubmitInput("hi", "llama3")
			in.TemperatureRange = [2]float64{0.9, 0.1}
			return in
		}(), "temperatures"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.BuildRequest(ctx, tt.in, models)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, ve.Field)
			}
		})
	}
}

func TestService_SubmitStartsPolling(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.store.SetCurrentExperimentID("exp-old")
	f.store.SetResults([]domain.Result{{Model: "stale"}})

	resp, err := f.svc.Submit(ctx, NewSubmitInput("hi", "llama3"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if resp.ExperimentID != "exp-new" {
		t.Errorf("unexpected response %+v", resp)
	}

	snap := f.store.Snapshot()
	if snap.CurrentExperimentID != "exp-new" || !snap.Loading || snap.Results != nil {
		t.Errorf("unexpected state after submit %+v", snap)
	}
	if f.session.id != "exp-new" {
		t.Errorf("expected id persisted, got %q", f.session.id)
	}
	if len(f.poller.stopped) != 1 || f.poller.stopped[0] != "exp-old" {
		t.Errorf("expected previous session stopped, got %v", f.poller.stopped)
	}
	if len(f.poller.started) != 1 || f.poller.started[0] != "exp-new" {
		t.Errorf("expected polling of new id, got %v", f.poller.started)
	}
}

func TestService_SubmitNetworkFailure(t *testing.T) {
	f := newFixture()
	f.client.GenerateFunc = func(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
		return nil, &domain.NetworkError{Op: "generate", Message: "backend down"}
	}

	_, err := f.svc.Submit(context.Background(), NewSubmitInput("hi", "llama3"))
	if !domain.IsNetworkError(err) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if f.store.Loading() {
		t.Error("expected loading cleared after failure")
	}
	if len(f.poller.started) != 0 {
		t.Error("expected no polling after failure")
	}
}

func TestService_SubmitValidationNeverSends(t *testing.T) {
	tests := []struct {
		name string
		in   SubmitInput
	}{
		{"empty prompt", NewSubmitInput("", "llama3")},
		{"no models", NewSubmitInput("hi")},
		{"inverted range", func() SubmitInput {
			in := NewSubmitInput("hi", "llama3")
			in.TemperatureRange = [2]float64{1.5, 0.5}
			return in
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			calls := 0
			f.client.ListModelsFunc = func(ctx context.Context) ([]domain.Model, error) {
				calls++
				return nil, &domain.NetworkError{Op: "list models", Message: "connection refused"}
			}
			f.client.GenerateFunc = func(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
				calls++
				return nil, nil
			}

			if _, err := f.svc.Submit(context.Background(), tt.in); !domain.IsValidationError(err) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if calls != 0 || f.store.Loading() {
				t.Errorf("expected no backend calls, got %d", calls)
			}
		})
	}
}

func TestService_SelectResumeCancelReset(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.svc.Select(ctx, ""); !domain.IsValidationError(err) {
		t.Errorf("expected ValidationError for empty id, got %v", err)
	}
	if _, err := f.svc.Cancel(ctx); !errors.Is(err, ErrNoExperiment) {
		t.Errorf("expected ErrNoExperiment, got %v", err)
	}

	if err := f.svc.Select(ctx, "exp-a"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if err := f.svc.Select(ctx, "exp-b"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(f.poller.stopped) != 1 || f.poller.stopped[0] != "exp-a" {
		t.Errorf("expected exp-a stopped, got %v", f.poller.stopped)
	}

	var cancelled string
	f.client.CancelFunc = func(ctx context.Context, id string) (*domain.CancelResponse, error) {
		cancelled = id
		return &domain.CancelResponse{Message: "ok", Cancelled: true}, nil
	}
	if _, err := f.svc.Cancel(ctx); err != nil || cancelled != "exp-b" {
		t.Errorf("Cancel = %q, %v", cancelled, err)
	}

	f.svc.Reset(ctx)
	if f.store.CurrentExperimentID() != "" || f.session.id != "" {
		t.Error("expected reset to clear current id")
	}
	if f.poller.stopped[len(f.poller.stopped)-1] != "exp-b" {
		t.Errorf("expected exp-b stopped on reset, got %v", f.poller.stopped)
	}

	f.session.id = "exp-persisted"
	id, err := f.svc.Resume(ctx)
	if err != nil || id != "exp-persisted" {
		t.Fatalf("Resume = %q, %v", id, err)
	}
	if f.poller.started[len(f.poller.started)-1] != "exp-persisted" {
		t.Errorf("expected resume to start polling, got %v", f.poller.started)
	}
}
