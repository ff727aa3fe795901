package statestore_test

import (
	"errors"
	"path/filepath"
	"testing"

	"reawwise/internal/services"
	"reawwise/internal/statestore"
)

func openStore(t *testing.T) *statestore.Store {
	t.Helper()
	store, err := statestore.Open(filepath.Join(t.TempDir(), "nested", "state.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveLoadIsSessionScoped(t *testing.T) {
	store := openStore(t)
	if err := store.Save("song-a", "project", []byte{1, 2, 3}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := store.Load("song-a", "project")
	if err != nil || string(got) != string([]byte{1, 2, 3}) {
		t.Fatalf("unexpected load %v, %v", got, err)
	}
	other, err := store.Load("song-b", "project")
	if err != nil || other != nil {
		t.Fatalf("expected nothing for another session, got %v, %v", other, err)
	}
}

func TestListAndDelete(t *testing.T) {
	store := openStore(t)
	for _, s := range []string{"b", "a"} {
		if err := store.Save(s, "project", []byte("xy")); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
	}
	entries, err := store.List()
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 2 || entries[0].Session != "a" || entries[1].Size != 2 {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if err := store.Delete("a", "project"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if got, _ := store.Load("a", "project"); got != nil {
		t.Fatalf("expected deleted blob, got %v", got)
	}
}

func TestSaveRequiresSession(t *testing.T) {
	store := openStore(t)
	if err := store.Save("", "project", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
