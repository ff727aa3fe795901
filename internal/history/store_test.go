package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"reawwise/internal/history"
	"reawwise/internal/services"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAddListGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, session := range []string{"a", "b", "a"} {
		_, err := store.Add(ctx, history.Record{
			RunID:          "run-" + string(rune('1'+i)),
			Session:        session,
			Destination:    `\Actor-Mixer Hierarchy\Default Work Unit`,
			ConflictPolicy: "use_existing",
			StartedAt:      base.Add(time.Duration(i) * time.Minute),
			FinishedAt:     base.Add(time.Duration(i)*time.Minute + time.Second),
			ObjectsCreated: i + 1,
			SummaryJSON:    `{"objects":{}}`,
		})
		if err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}

	all, err := store.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 3 || all[0].RunID != "run-3" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	onlyA, err := store.List(ctx, "a", 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(onlyA) != 2 {
		t.Fatalf("expected two runs for session a, got %d", len(onlyA))
	}

	rec, err := store.Get(ctx, "run-2")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec.Session != "b" || rec.ObjectsCreated != 2 || !rec.StartedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Project != "" {
		t.Fatalf("expected empty project, got %q", rec.Project)
	}
	byID, err := store.Get(ctx, "1")
	if err != nil || byID.RunID != "run-1" {
		t.Fatalf("expected lookup by row id, got %+v, %v", byID, err)
	}
}

func TestGetMissing(t *testing.T) {
	store := openStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, err := store.Add(context.Background(), history.Record{RunID: "x", Session: "s", SummaryJSON: "{}"}); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	_ = store.Close()

	store, err = history.Open(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer store.Close()
	runs, err := store.List(context.Background(), "s", 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one run after reopen, got %v, %v", runs, err)
	}
}

func TestAddRequiresRunID(t *testing.T) {
	store := openStore(t)
	if _, err := store.Add(context.Background(), history.Record{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
