// Package apikeys manages the provider API keys sent along with generate requests.
package apikeys

import (
	"context"
	"fmt"
	"strings"

	"github.com/emiliopalmerini/mlab/internal/domain"
	"github.com/emiliopalmerini/mlab/internal/ports"
)

// ErrKeyNotFound is returned by Update when no key is stored for the provider.
var ErrKeyNotFound = fmt.Errorf("api key not found")

// Keyring holds at most one key per provider.
type Keyring struct {
	repo ports.APIKeyRepository
}

func NewKeyring(repo ports.APIKeyRepository) *Keyring {
	return &Keyring{repo: repo}
}

// Add stores key, replacing any existing key for the same provider.
func (k *Keyring) Add(ctx context.Context, key domain.APIKey) error {
	key.Provider = strings.TrimSpace(key.Provider)
	key.Key = strings.TrimSpace(key.Key)
	if key.Provider == "" {
		return &domain.ValidationError{Field: "provider", Message: "provider is required"}
	}
	if key.Key == "" {
		return &domain.ValidationError{Field: "key", Message: "key is required"}
	}
	if key.Name == "" {
		key.Name = domain.ProviderDisplayName(key.Provider)
	}
	if err := k.repo.Upsert(ctx, key); err != nil {
		return fmt.Errorf("failed to store key for %s: %w", key.Provider, err)
	}
	return nil
}

// Update replaces the key of a provider that already has one.
func (k *Keyring) Update(ctx context.Context, key domain.APIKey) error {
	existing, err := k.repo.Get(ctx, strings.TrimSpace(key.Provider))
	if err != nil {
		return fmt.Errorf("failed to look up key for %s: %w", key.Provider, err)
	}
	if existing == nil {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key.Provider)
	}
	if key.Name == "" {
		key.Name = existing.Name
	}
	return k.Add(ctx, key)
}

func (k *Keyring) Remove(ctx context.Context, provider string) error {
	if err := k.repo.Delete(ctx, provider); err != nil {
		return fmt.Errorf("failed to remove key for %s: %w", provider, err)
	}
	return nil
}

// Get returns nil, nil when the provider has no key.
func (k *Keyring) Get(ctx context.Context, provider string) (*domain.APIKey, error) {
	return k.repo.Get(ctx, provider)
}

func (k *Keyring) Has(ctx context.Context, provider string) (bool, error) {
	key, err := k.repo.Get(ctx, provider)
	if err != nil {
		return false, err
	}
	return key != nil, nil
}

func (k *Keyring) List(ctx context.Context) ([]domain.APIKey, error) {
	return k.repo.List(ctx)
}

// MissingProviders returns, in first-seen order, the providers among required
// that need a key and have none stored.
func (k *Keyring) MissingProviders(ctx context.Context, required []string) ([]string, error) {
	stored, err := k.AsMap(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(required))
	var missing []string
	for _, p := range required {
		if seen[p] || !domain.ProviderNeedsAPIKey(p) {
			continue
		}
		seen[p] = true
		if _, ok := stored[p]; !ok {
			missing = append(missing, p)
		}
	}
	return missing, nil
}

// AsMap returns provider to key, the shape sent with generate requests.
func (k *Keyring) AsMap(ctx context.Context) (map[string]string, error) {
	keys, err := k.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	m := make(map[string]string, len(keys))
	for _, key := range keys {
		m[key.Provider] = key.Key
	}
	return m, nil
}
