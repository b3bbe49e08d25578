package ports

import (
	"context"

	"github.com/emiliopalmerini/mlab/internal/domain"
)

// StatusClient fetches the current status of one experiment.
// It never retries; callers own the retry policy.
type StatusClient interface {
	FetchStatus(ctx context.Context, experimentID string) (*domain.ExperimentStatus, error)
}

// ExperimentClient is the full backend surface used by the dashboard.
type ExperimentClient interface {
	StatusClient
	Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error)
	Cancel(ctx context.Context, experimentID string) (*domain.CancelResponse, error)
	ListModels(ctx context.Context) ([]domain.Model, error)
	ListExperiments(ctx context.Context) ([]domain.ExperimentSummary, error)
	GetExperiment(ctx context.Context, experimentID string) (*domain.ExperimentDetail, error)
	QualityMetrics(ctx context.Context, experimentID string) ([]domain.QualityMetric, error)
	CheckAPIKey(ctx context.Context, provider string) (bool, error)
}
