package ports

import (
	"context"

	"github.com/emiliopalmerini/mlab/internal/domain"
)

// APIKeyRepository stores one key per provider.
type APIKeyRepository interface {
	Upsert(ctx context.Context, key domain.APIKey) error
	Get(ctx context.Context, provider string) (*domain.APIKey, error)
	List(ctx context.Context) ([]domain.APIKey, error)
	Delete(ctx context.Context, provider string) error
}
