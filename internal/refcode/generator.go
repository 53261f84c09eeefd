package refcode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrSequenceExhausted is returned when a day's sequence would exceed 9999,
// spec §4.1 "Fails with SequenceExhausted if sequence would exceed 9999".
var ErrSequenceExhausted = errors.New("refcode: sequence exhausted for today")

// SequenceState is the persisted tuple consumed by the generator, spec §3.9.
type SequenceState struct {
	Date     time.Time
	Sequence int
}

// SequenceStore is the persistence contract of spec §4.1: "load returns the
// last saved tuple or the zero state; save is last-writer-wins; corrupt
// payloads are treated as zero state (self-healing read)." Concrete
// implementations live in internal/fsstore.
type SequenceStore interface {
	Load(ctx context.Context) (SequenceState, error)
	Save(ctx context.Context, state SequenceState) error
}

// Generator produces strictly monotonic ReferenceCodes within a UTC day,
// resetting to 1 on date rollover, under single-writer exclusion (spec
// §4.1, §5 "Reference-code generator: single-writer exclusion around
// load/update/save").
type Generator struct {
	mu    sync.Mutex
	store SequenceStore
	now   func() time.Time // overridable for tests
}

// NewGenerator builds a Generator backed by store. now defaults to
// time.Now if nil.
func NewGenerator(store SequenceStore, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{store: store, now: now}
}

// GenerateAsync allocates the next ReferenceCode for today (UTC), per the
// five steps of spec §4.1. Cancellation before the mutex is acquired must
// not mutate shared state (spec §5); once the mutex is held the operation
// runs to completion or returns an error without a partial write.
func (g *Generator) GenerateAsync(ctx context.Context) (Code, error) {
	select {
	case <-ctx.Done():
		return Code{}, ctx.Err()
	default:
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	today := g.now().UTC().Truncate(24 * time.Hour)

	state, err := g.store.Load(ctx)
	if err != nil {
		return Code{}, fmt.Errorf("refcode: load sequence state: %w", err)
	}

	var sequence int
	if state.Date.IsZero() || !sameDay(state.Date, today) {
		sequence = 1
	} else {
		sequence = state.Sequence + 1
	}
	if sequence > 9999 {
		return Code{}, ErrSequenceExhausted
	}

	if err := g.store.Save(ctx, SequenceState{Date: today, Sequence: sequence}); err != nil {
		return Code{}, fmt.Errorf("refcode: save sequence state: %w", err)
	}

	return New(today, sequence)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
