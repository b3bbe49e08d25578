package web

import (
	"context"
	"sort"
	"sync"

	"github.com/emiliopalmerini/mlab/internal/domain"
	"github.com/emiliopalmerini/mlab/internal/polling"
)

type mockClient struct {
	GenerateFunc        func(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error)
	CancelFunc          func(ctx context.Context, id string) (*domain.CancelResponse, error)
	ListModelsFunc      func(ctx context.Context) ([]domain.Model, error)
	ListExperimentsFunc func(ctx context.Context) ([]domain.ExperimentSummary, error)
	GetExperimentFunc   func(ctx context.Context, id string) (*domain.ExperimentDetail, error)
	QualityMetricsFunc  func(ctx context.Context, id string) ([]domain.QualityMetric, error)
	CheckAPIKeyFunc     func(ctx context.Context, provider string) (bool, error)
}

func (m *mockClient) FetchStatus(ctx context.Context, id string) (*domain.ExperimentStatus, error) {
	return &domain.ExperimentStatus{ID: id, Status: domain.StatusRunning}, nil
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
	return &domain.CancelResponse{Message: "cancelled", Cancelled: true}, nil
}

func (m *mockClient) ListModels(ctx context.Context) ([]domain.Model, error) {
	if m.ListModelsFunc != nil {
		return m.ListModelsFunc(ctx)
	}
	return []domain.Model{
		{ID: "gpt-4o", Name: "GPT-4o", Provider: domain.ProviderOpenAI},
		{ID: "mock-llm", Name: "Mock LLM", Provider: domain.ProviderMock},
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
	return &domain.ExperimentDetail{ID: id, Name: "Experiment " + id}, nil
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
	mu      sync.Mutex
	started []string
	stopped []string
	closed  bool
}

func (p *mockPoller) Start(ctx context.Context, id string, cb polling.Callbacks) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, id)
	return true
}

func (p *mockPoller) Stop(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = append(p.stopped, id)
}

func (p *mockPoller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *mockPoller) Wait() {}

type memoryKeyRepo struct {
	mu   sync.Mutex
	keys map[string]domain.APIKey
}

func newMemoryKeyRepo() *memoryKeyRepo {
	return &memoryKeyRepo{keys: make(map[string]domain.APIKey)}
}

func (r *memoryKeyRepo) Upsert(ctx context.Context, key domain.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[key.Provider] = key
	return nil
}

func (r *memoryKeyRepo) Get(ctx context.Context, provider string) (*domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.keys[provider]; ok {
		return &k, nil
	}
	return nil, nil
}

func (r *memoryKeyRepo) List(ctx context.Context) ([]domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.APIKey, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

func (r *memoryKeyRepo) Delete(ctx context.Context, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, provider)
	return nil
}
