package refcode

import (
	"context"
	"testing"
	"time"
)

// memStore is a trivial in-memory SequenceStore for generator tests.
type memStore struct {
	state SequenceState
}

func (m *memStore) Load(ctx context.Context) (SequenceState, error) {
	return m.state, nil
}

func (m *memStore) Save(ctx context.Context, state SequenceState) error {
	m.state = state
	return nil
}

func TestGeneratorMonotonicWithinDay(t *testing.T) {
	store := &memStore{}
	fixed := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	g := NewGenerator(store, func() time.Time { return fixed })

	first, err := g.GenerateAsync(context.Background())
	if err != nil {
		t.Fatalf("GenerateAsync: %v", err)
	}
	second, err := g.GenerateAsync(context.Background())
	if err != nil {
		t.Fatalf("GenerateAsync: %v", err)
	}
	if first.Sequence() != 1 || second.Sequence() != 2 {
		t.Fatalf("sequences = %d, %d, want 1, 2", first.Sequence(), second.Sequence())
	}
}

func TestGeneratorResetsOnDateRollover(t *testing.T) {
	store := &memStore{}
	day1 := time.Date(2026, 7, 31, 23, 59, 0, 0, time.UTC)
	now := day1
	g := NewGenerator(store, func() time.Time { return now })

	if _, err := g.GenerateAsync(context.Background()); err != nil {
		t.Fatalf("GenerateAsync day1: %v", err)
	}

	now = day1.Add(2 * time.Hour) // rolls into Aug 1
	code, err := g.GenerateAsync(context.Background())
	if err != nil {
		t.Fatalf("GenerateAsync day2: %v", err)
	}
	if code.Sequence() != 1 {
		t.Fatalf("sequence after rollover = %d, want 1", code.Sequence())
	}
}

func TestGeneratorSequenceExhausted(t *testing.T) {
	store := &memStore{state: SequenceState{Date: time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), Sequence: 9999}}
	fixed := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	g := NewGenerator(store, func() time.Time { return fixed })

	_, err := g.GenerateAsync(context.Background())
	if err != ErrSequenceExhausted {
		t.Fatalf("err = %v, want %v", err, ErrSequenceExhausted)
	}
}

func TestGeneratorCorruptStateTreatedAsZero(t *testing.T) {
	// A zero-value SequenceState (corrupt/missing payload) must start fresh
	// at sequence 1 rather than erroring, spec §4.1's self-healing read.
	store := &memStore{}
	fixed := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(store, func() time.Time { return fixed })

	code, err := g.GenerateAsync(context.Background())
	if err != nil {
		t.Fatalf("GenerateAsync: %v", err)
	}
	if code.Sequence() != 1 {
		t.Fatalf("sequence = %d, want 1", code.Sequence())
	}
}

func TestGeneratorRejectsCancelledContextBeforeMutation(t *testing.T) {
	store := &memStore{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGenerator(store, func() time.Time { return time.Now() })
	if _, err := g.GenerateAsync(ctx); err == nil {
		t.Fatal("GenerateAsync with cancelled context succeeded, want error")
	}
	if store.state != (SequenceState{}) {
		t.Fatalf("store mutated despite cancelled context: %+v", store.state)
	}
}
