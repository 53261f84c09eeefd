// Package workflow correlates sub-task replies to a parent workflow and
// assembles the final result exactly once, spec §3.6, §4.9, §9 ("workflow
// aggregation race... use a per-workflow mutex or a compare-and-set").
package workflow

import (
	"errors"
	"sync"
	"time"

	"github.com/cortexrt/runtime/internal/envelope"
)

// Status mirrors spec §3.6: InProgress → (Completed | Failed).
type Status int

const (
	InProgress Status = iota
	Completed
	Failed
)

// Record is spec §3.6's WorkflowRecord plus the mutable CompletedResults
// map, guarded by its own mutex so "is this the final sub-task?" and
// "store this result" are atomic together (spec §9).
type Record struct {
	ReferenceCode        string
	OriginalEnvelope     envelope.Envelope
	SubtaskReferenceCodes []string
	// SubtaskTasks is parallel to SubtaskReferenceCodes, carrying the
	// capability/description the Chief of Staff dispatched each sub-task
	// for — needed to render the "## <capability>: <description>" section
	// headers when the final reply is assembled, spec §4.7.6 step 4.
	SubtaskTasks         []envelope.DecomposedTask
	Summary              string
	Status               Status
	CreatedAt            time.Time
	CompletedAt          *time.Time

	mu      sync.Mutex
	results map[string]envelope.Envelope
	failed  map[string]bool
	assembled bool
}

var (
	ErrWorkflowNotFound = errors.New("workflow: not found")
	ErrSubtaskUnknown   = errors.New("workflow: subtask reference code not part of this workflow")
)

// Tracker is the C9 component: a concurrency-safe index from parent and
// sub-task reference codes to Records.
type Tracker struct {
	mu          sync.RWMutex
	byParent    map[string]*Record
	bySubtask   map[string]*Record // subtask code -> owning record
}

func NewTracker() *Tracker {
	return &Tracker{byParent: make(map[string]*Record), bySubtask: make(map[string]*Record)}
}

// Create atomically records a new workflow and indexes its sub-task codes.
// Spec §3.6 invariant: "each sub-task code appears exactly once across all
// live workflows" — Create panics-free-errors out if a code collides.
func (t *Tracker) Create(refCode string, original envelope.Envelope, subtaskCodes []string, tasks []envelope.DecomposedTask, summary string, now time.Time) (*Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, sc := range subtaskCodes {
		if _, exists := t.bySubtask[sc]; exists {
			return nil, errors.New("workflow: sub-task reference code already indexed in a live workflow")
		}
	}

	rec := &Record{
		ReferenceCode:         refCode,
		OriginalEnvelope:      original,
		SubtaskReferenceCodes: subtaskCodes,
		SubtaskTasks:          tasks,
		Summary:               summary,
		Status:                InProgress,
		CreatedAt:             now,
		results:               make(map[string]envelope.Envelope),
		failed:                make(map[string]bool),
	}
	t.byParent[refCode] = rec
	for _, sc := range subtaskCodes {
		t.bySubtask[sc] = rec
	}
	return rec, nil
}

func (t *Tracker) Get(refCode string) (*Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.byParent[refCode]
	if !ok {
		return nil, ErrWorkflowNotFound
	}
	return rec, nil
}

// FindBySubtask is the constant-time lookup of spec §4.9.
func (t *Tracker) FindBySubtask(subtaskCode string) (*Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.bySubtask[subtaskCode]
	return rec, ok
}

// StoreSubtaskResult appends reply to the record's result map and reports
// whether this call was the one that completed the workflow (i.e. whether
// the caller should now assemble and publish the final reply). Only one
// caller ever observes complete==true for a given workflow (spec §8: "for
// all workflows W with AllSubtasksComplete(W) == true, there is exactly one
// publication of the assembled reply").
func (r *Record) StoreSubtaskResult(subtaskCode string, reply envelope.Envelope, failed bool, now time.Time) (complete bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	for _, sc := range r.SubtaskReferenceCodes {
		if sc == subtaskCode {
			found = true
			break
		}
	}
	if !found {
		return false, ErrSubtaskUnknown
	}

	r.results[subtaskCode] = reply
	if failed {
		r.failed[subtaskCode] = true
	}

	allIn := len(r.results) == len(r.SubtaskReferenceCodes)
	if !allIn || r.assembled {
		return false, nil
	}
	r.assembled = true
	r.CompletedAt = &now
	if len(r.failed) > 0 {
		r.Status = Failed
	} else {
		r.Status = Completed
	}
	return true, nil
}

// AllSubtasksComplete reports whether every sub-task has a stored result.
func (r *Record) AllSubtasksComplete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results) == len(r.SubtaskReferenceCodes)
}

// GetCompletedResults returns a snapshot ordered to match
// SubtaskReferenceCodes, spec §4.9.
func (r *Record) GetCompletedResults() []envelope.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]envelope.Envelope, 0, len(r.SubtaskReferenceCodes))
	for _, sc := range r.SubtaskReferenceCodes {
		if e, ok := r.results[sc]; ok {
			out = append(out, e)
		}
	}
	return out
}

// FailedSubtasks returns the sub-task codes whose replies were recorded as
// failures, in no particular order.
func (r *Record) FailedSubtasks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for sc := range r.failed {
		out = append(out, sc)
	}
	return out
}
