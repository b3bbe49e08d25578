package turso

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/emiliopalmerini/mlab/internal/domain"
)

// APIKeyRepository stores provider API keys in the local database.
type APIKeyRepository struct {
	db *sql.DB
}

func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Upsert(ctx context.Context, key domain.APIKey) error {
	err := withRetryErr(ctx, func() error {
		_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (provider, name, key, updated_at)
		VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		ON CONFLICT(provider) DO UPDATE SET
			name = excluded.name,
			key = excluded.key,
			updated_at = excluded.updated_at
	`, key.Provider, key.Name, key.Key)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert api key: %w", err)
	}
	return nil
}

// Get returns nil, nil when no key is stored for provider.
func (r *APIKeyRepository) Get(ctx context.Context, provider string) (*domain.APIKey, error) {
	k, err := withRetry(ctx, maxStreamRetries, func() (domain.APIKey, error) {
		var k domain.APIKey
		err := r.db.QueryRowContext(ctx, `SELECT provider, name, key FROM api_keys WHERE provider = ?`, provider).
			Scan(&k.Provider, &k.Name, &k.Key)
		return k, err
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return &k, nil
}

func (r *APIKeyRepository) List(ctx context.Context) ([]domain.APIKey, error) {
	rows, err := withRetry(ctx, maxStreamRetries, func() (*sql.Rows, error) {
		return r.db.QueryContext(ctx, `SELECT provider, name, key FROM api_keys ORDER BY provider`)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []domain.APIKey
	for rows.Next() {
		var k domain.APIKey
		if err := rows.Scan(&k.Provider, &k.Name, &k.Key); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate api keys: %w", err)
	}
	return keys, nil
}

func (r *APIKeyRepository) Delete(ctx context.Context, provider string) error {
	err := withRetryErr(ctx, func() error {
		_, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE provider = ?`, provider)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	return nil
}
