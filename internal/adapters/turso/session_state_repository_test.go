package turso_test

import (
	"context"
	"testing"

	"github.com/emiliopalmerini/mlab/internal/adapters/turso"
)

func TestSessionStateRepository(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := turso.NewSessionStateRepository(db)

	id, err := repo.GetCurrentExperimentID(ctx)
	if err != nil {
		t.Fatalf("GetCurrentExperimentID failed: %v", err)
	}
	if id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}

	if err := repo.SetCurrentExperimentID(ctx, "exp-1"); err != nil {
		t.Fatalf("SetCurrentExperimentID failed: %v", err)
	}
	if err := repo.SetCurrentExperimentID(ctx, "exp-2"); err != nil {
		t.Fatalf("SetCurrentExperimentID overwrite failed: %v", err)
	}

	id, err = repo.GetCurrentExperimentID(ctx)
	if err != nil {
		t.Fatalf("GetCurrentExperimentID failed: %v", err)
	}
	if id != "exp-2" {
		t.Errorf("expected exp-2, got %q", id)
	}

	if err := repo.SetCurrentExperimentID(ctx, ""); err != nil {
		t.Fatalf("clearing id failed: %v", err)
	}
	id, err = repo.GetCurrentExperimentID(ctx)
	if err != nil {
		t.Fatalf("GetCurrentExperimentID failed: %v", err)
	}
	if id != "" {
		t.Errorf("expected cleared id, got %q", id)
	}
}
