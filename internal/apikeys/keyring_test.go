package apikeys

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/emiliopalmerini/mlab/internal/domain"
)

// memoryRepo is an in-memory APIKeyRepository.
type memoryRepo struct {
	keys    map[string]domain.APIKey
	ListErr error
}

func newMemoryRepo(keys ...domain.APIKey) *memoryRepo {
	r := &memoryRepo{keys: make(map[string]domain.APIKey)}
	for _, k := range keys {
		r.keys[k.Provider] = k
	}
	return r
}

func (r *memoryRepo) Upsert(ctx context.Context, key domain.APIKey) error {
	r.keys[key.Provider] = key
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, provider string) (*domain.APIKey, error) {
	k, ok := r.keys[provider]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

func (r *memoryRepo) List(ctx context.Context) ([]domain.APIKey, error) {
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := make([]domain.APIKey, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

func (r *memoryRepo) Delete(ctx context.Context, provider string) error {
	delete(r.keys, provider)
	return nil
}

func TestKeyring_AddValidatesAndUpserts(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	k := NewKeyring(repo)

	tests := []struct {
		name      string
		key       domain.APIKey
		wantField string
	}{
		{"missing provider", domain.APIKey{Key: "sk"}, "provider"},
		{"missing key", domain.APIKey{Provider: "openai", Key: "  "}, "key"},
		{"valid", domain.APIKey{Provider: " openai ", Key: " sk-1 "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := k.Add(ctx, tt.key)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Add failed: %v", err)
				}
				return
			}
			var ve *domain.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.wantField {
				t.Errorf("expected validation error on %s, got %v", tt.wantField, err)
			}
		})
	}

	got := repo.keys["openai"]
	if got.Key != "sk-1" || got.Name != "OpenAI" {
		t.Errorf("expected trimmed key with default name, got %+v", got)
	}
}

func TestKeyring_Update(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo(domain.APIKey{Provider: "openai", Name: "work", Key: "sk-old"})
	k := NewKeyring(repo)

	if err := k.Update(ctx, domain.APIKey{Provider: "anthropic", Key: "x"}); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
	if err := k.Update(ctx, domain.APIKey{Provider: "openai", Key: "sk-new"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got := repo.keys["openai"]; got.Key != "sk-new" || got.Name != "work" {
		t.Errorf("expected updated key keeping name, got %+v", got)
	}
}

func TestKeyring_HasRemoveAndMap(t *testing.T) {
	ctx := context.Background()
	k := NewKeyring(newMemoryRepo(
		domain.APIKey{Provider: "openai", Key: "sk-1"},
		domain.APIKey{Provider: "anthropic", Key: "sk-2"},
	))

	if ok, err := k.Has(ctx, "openai"); err != nil || !ok {
		t.Errorf("Has(openai) = %v, %v", ok, err)
	}
	if err := k.Remove(ctx, "openai"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if ok, _ := k.Has(ctx, "openai"); ok {
		t.Error("expected openai key to be removed")
	}

	m, err := k.AsMap(ctx)
	if err != nil {
		t.Fatalf("AsMap failed: %v", err)
	}
	if len(m) != 1 || m["anthropic"] != "sk-2" {
		t.Errorf("unexpected map %v", m)
	}
}

func TestKeyring_MissingProviders(t *testing.T) {
	ctx := context.Background()
	k := NewKeyring(newMemoryRepo(domain.APIKey{Provider: "openai", Key: "sk-1"}))

	missing, err := k.MissingProviders(ctx, []string{"openai", "anthropic", "ollama", "mock", "anthropic", "openrouter"})
	if err != nil {
		t.Fatalf("MissingProviders failed: %v", err)
	}
	if len(missing) != 2 || missing[0] != "anthropic" || missing[1] != "openrouter" {
		t.Errorf("unexpected missing providers %v", missing)
	}

	failing := NewKeyring(&memoryRepo{keys: map[string]domain.APIKey{}, ListErr: errors.New("db down")})
	if _, err := failing.MissingProviders(ctx, []string{"openai"}); err == nil {
		t.Error("expected list error to surface")
	}
}
