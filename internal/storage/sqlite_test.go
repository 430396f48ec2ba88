//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"statforge/internal/model"
)

func TestSQLiteStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "statforge.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	for i, id := range []string{"a", "b"} {
		if err := store.SaveRun(ctx, runFixture(id, time.Unix(int64(100+i), 0).UTC())); err != nil {
			t.Fatalf("save run %s: %v", id, err)
		}
	}

	loaded, ok, err := store.GetRun(ctx, "a")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected run a")
	}
	if loaded.ProfileKey != "juggernaut" || loaded.Result.Allocation[model.Strength] != 30 {
		t.Fatalf("unexpected run loaded: %+v", loaded)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "b" {
		t.Fatalf("unexpected run order: %+v", runs)
	}
}

func TestSQLiteStoreHistoryAndDiagnostics(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "statforge.db"))
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.SaveRun(ctx, runFixture("run-1", time.Now())); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.SaveFitnessHistory(ctx, "run-1", []float64{1, 2, 3}); err != nil {
		t.Fatalf("save history: %v", err)
	}
	if err := store.SaveFitnessHistory(ctx, "run-1", []float64{1, 2, 3, 4}); err != nil {
		t.Fatalf("overwrite history: %v", err)
	}
	history, ok, err := store.GetFitnessHistory(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get history: ok=%v err=%v", ok, err)
	}
	if len(history) != 4 || history[3] != 4 {
		t.Fatalf("unexpected history: %+v", history)
	}

	diagnostics := []model.GenerationDiagnostics{{Generation: 1, BestScore: 10, Distinct: 30}}
	if err := store.SaveGenerationDiagnostics(ctx, "run-1", diagnostics); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	loaded, ok, err := store.GetGenerationDiagnostics(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get diagnostics: ok=%v err=%v", ok, err)
	}
	if len(loaded) != 1 || loaded[0].Distinct != 30 {
		t.Fatalf("unexpected diagnostics: %+v", loaded)
	}

	if err := store.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	if _, ok, err := store.GetFitnessHistory(ctx, "run-1"); err != nil || ok {
		t.Fatalf("expected history removed, ok=%v err=%v", ok, err)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "statforge.db"))
	if _, _, err := store.GetRun(context.Background(), "x"); err == nil {
		t.Fatal("expected error before init")
	}
}
