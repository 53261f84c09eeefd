package contextstore

import (
	"context"
	"testing"

	"github.com/cortexrt/runtime/internal/fsstore"
	"github.com/cortexrt/runtime/internal/registry"
)

func newMemStore(t *testing.T) *fsstore.ContextFileStore {
	t.Helper()
	fs, err := fsstore.OpenMem()
	if err != nil {
		t.Fatalf("OpenMem: %v", err)
	}
	return fsstore.NewContextFileStore(fs, "entries")
}

func TestFilePersisterSealsSensitiveCategory(t *testing.T) {
	store := newMemStore(t)
	key := make([]byte, 32)
	sealer, err := NewSealer(key)
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	p := NewFilePersister(store, sealer)

	entry := registry.ContextEntry{EntryId: "e1", Content: "plaintext secret", Category: "Decision"}
	if err := p.Persist(entry); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	stored, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("List() = %d entries, want 1", len(stored))
	}
	if stored[0].Content == "plaintext secret" {
		t.Fatal("sensitive content was persisted unsealed")
	}

	got, err := sealer.Unseal(stored[0].Content)
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}
	if got != "plaintext secret" {
		t.Fatalf("Unseal() = %q, want %q", got, "plaintext secret")
	}
}

func TestFilePersisterLeavesNonSensitiveCategoryInClear(t *testing.T) {
	store := newMemStore(t)
	key := make([]byte, 32)
	sealer, err := NewSealer(key)
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	p := NewFilePersister(store, sealer)

	if err := p.Persist(registry.ContextEntry{EntryId: "e1", Content: "public note", Category: "GeneralNote"}); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	stored, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stored) != 1 || stored[0].Content != "public note" {
		t.Fatalf("List() = %+v, want unsealed \"public note\"", stored)
	}
}

func TestFilePersisterNilSealerPassesThrough(t *testing.T) {
	store := newMemStore(t)
	p := NewFilePersister(store, nil)

	if err := p.Persist(registry.ContextEntry{EntryId: "e1", Content: "secret note", Category: "Decision"}); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	stored, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stored) != 1 || stored[0].Content != "secret note" {
		t.Fatalf("List() = %+v, want unsealed content when no sealer is configured", stored)
	}
}
