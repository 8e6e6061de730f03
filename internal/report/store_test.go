// File path: internal/report/store_test.go
package report

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/FilipDolejsi/JuriCode/internal/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store, err := NewStore(db.DB())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestUpsertReplacesInsteadOfAppending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := "https://github.com/acme/scoring"

	if err := store.Upsert(ctx, repo, "risk_classifier", "first run", "High Risk"); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := store.Upsert(ctx, repo, "risk_classifier", "second run", "Prohibited"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	reports, err := store.ListOrdered(ctx, repo)
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected exactly one report after repeated runs, got %d", len(reports))
	}
	if reports[0].Content != "second run" {
		t.Fatalf("expected replaced content, got %q", reports[0].Content)
	}
	if reports[0].Verdict != "Prohibited" {
		t.Fatalf("expected replaced verdict, got %q", reports[0].Verdict)
	}
}

func TestUpsertPreservesCreationOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := "https://github.com/acme/scoring"

	categories := []string{"risk_classifier", "data_ethics_auditor", "technical_robustness_auditor"}
	for _, category := range categories {
		if err := store.Upsert(ctx, repo, category, "report for "+category, ""); err != nil {
			t.Fatalf("upsert %s: %v", category, err)
		}
	}
	// A rerun of the first category must not move it to the tail.
	if err := store.Upsert(ctx, repo, categories[0], "updated", ""); err != nil {
		t.Fatalf("rerun upsert: %v", err)
	}

	reports, err := store.ListOrdered(ctx, repo)
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(reports) != len(categories) {
		t.Fatalf("expected %d reports, got %d", len(categories), len(reports))
	}
	for i, category := range categories {
		if reports[i].Category != category {
			t.Fatalf("position %d: expected %s, got %s", i, category, reports[i].Category)
		}
	}
	if reports[0].Content != "updated" {
		t.Fatalf("expected rerun content in original slot, got %q", reports[0].Content)
	}
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "https://github.com/acme/none", "risk_classifier")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositoriesListsDistinctRepos(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Upsert(ctx, "https://github.com/acme/a", "risk_classifier", "x", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Upsert(ctx, "https://github.com/acme/a", "data_ethics_auditor", "y", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Upsert(ctx, "https://github.com/acme/b", "risk_classifier", "z", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	repos, err := store.Repositories(ctx)
	if err != nil {
		t.Fatalf("repositories: %v", err)
	}
	if len(repos) != 2 {
		t.Fatalf("expected 2 distinct repositories, got %d (%v)", len(repos), repos)
	}
}
