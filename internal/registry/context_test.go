package registry

import (
	"errors"
	"testing"
	"time"
)

type fakePersister struct {
	persisted []ContextEntry
	err       error
}

func (p *fakePersister) Persist(e ContextEntry) error {
	p.persisted = append(p.persisted, e)
	return p.err
}

func TestContextStorePersists(t *testing.T) {
	p := &fakePersister{}
	r := NewContextRegistry(p)

	e := ContextEntry{EntryId: "e1", Content: "the Q3 budget is tight"}
	if err := r.Store(e); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if len(p.persisted) != 1 || p.persisted[0].EntryId != "e1" {
		t.Fatalf("persister did not receive the entry: %v", p.persisted)
	}
}

func TestContextStorePropagatesPersisterError(t *testing.T) {
	wantErr := errors.New("disk full")
	p := &fakePersister{err: wantErr}
	r := NewContextRegistry(p)

	if err := r.Store(ContextEntry{EntryId: "e1"}); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestContextStoreNilPersisterIsMemoryOnly(t *testing.T) {
	r := NewContextRegistry(nil)
	if err := r.Store(ContextEntry{EntryId: "e1"}); err != nil {
		t.Fatalf("Store with nil persister: %v", err)
	}
}

func TestQueryFiltersCombineWithAND(t *testing.T) {
	r := NewContextRegistry(nil)
	now := time.Now()
	r.Store(ContextEntry{EntryId: "e1", Content: "budget review", Category: "finance", Tags: []string{"q3"}, ReferenceCode: "CTX-1", CreatedAt: now})
	r.Store(ContextEntry{EntryId: "e2", Content: "budget review", Category: "ops", Tags: []string{"q3"}, ReferenceCode: "CTX-2", CreatedAt: now})

	got := r.Query(ContextQuery{Keywords: "budget", Category: "finance"})
	if len(got) != 1 || got[0].EntryId != "e1" {
		t.Fatalf("Query() = %v, want only e1", got)
	}
}

func TestQueryEmptyFiltersIgnored(t *testing.T) {
	r := NewContextRegistry(nil)
	r.Store(ContextEntry{EntryId: "e1", Content: "anything", CreatedAt: time.Now()})
	got := r.Query(ContextQuery{})
	if len(got) != 1 {
		t.Fatalf("Query(empty) = %v, want all entries", got)
	}
}

func TestQueryOrdersCreatedAtDescending(t *testing.T) {
	r := NewContextRegistry(nil)
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	r.Store(ContextEntry{EntryId: "old", Content: "x", CreatedAt: older})
	r.Store(ContextEntry{EntryId: "new", Content: "x", CreatedAt: newer})

	got := r.Query(ContextQuery{})
	if len(got) != 2 || got[0].EntryId != "new" || got[1].EntryId != "old" {
		t.Fatalf("Query() order = %v, want [new, old]", got)
	}
}

func TestQueryMaxResultsTruncates(t *testing.T) {
	r := NewContextRegistry(nil)
	for i := 0; i < 5; i++ {
		r.Store(ContextEntry{EntryId: string(rune('a' + i)), Content: "x", CreatedAt: time.Now()})
	}
	got := r.Query(ContextQuery{MaxResults: 2})
	if len(got) != 2 {
		t.Fatalf("Query(MaxResults=2) returned %d entries, want 2", len(got))
	}
}

func TestQueryTagOverlap(t *testing.T) {
	r := NewContextRegistry(nil)
	r.Store(ContextEntry{EntryId: "e1", Tags: []string{"urgent", "q3"}, CreatedAt: time.Now()})
	r.Store(ContextEntry{EntryId: "e2", Tags: []string{"low-priority"}, CreatedAt: time.Now()})

	got := r.Query(ContextQuery{Tags: []string{"urgent"}})
	if len(got) != 1 || got[0].EntryId != "e1" {
		t.Fatalf("Query(Tags=[urgent]) = %v, want only e1", got)
	}
}
