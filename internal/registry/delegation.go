package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/cortexrt/runtime/internal/envelope"
)

// DelegationStatus is the state machine of spec §3.4/§5: "Pending →
// InProgress → (Completed | Failed | Escalated). No transition goes
// backward."
type DelegationStatus int

const (
	Pending DelegationStatus = iota
	InProgress
	Completed
	Failed
	Escalated
)

var legalNext = map[DelegationStatus]map[DelegationStatus]bool{
	Pending:    {InProgress: true, Completed: true, Failed: true, Escalated: true},
	InProgress: {Completed: true, Failed: true, Escalated: true},
}

// Delegation is the hand-off record of spec §3.4. Capability and
// DispatchedEnvelope are the Chief of Staff's own bookkeeping additions
// (SPEC_FULL §12): the supervision retry/re-dispatch path (spec §4.7.5)
// needs to know what capability the failed delegation was for and the
// exact envelope it last sent, so it can either resend it to the same
// target or re-resolve a fresh target for the same capability.
type Delegation struct {
	ReferenceCode      string
	DelegatedBy        string
	DelegatedTo        string
	Description        string
	Capability         string
	DispatchedEnvelope envelope.Envelope
	DueAt              *time.Time
	Status             DelegationStatus
}

var (
	ErrDelegationNotFound    = errors.New("registry: delegation not found")
	ErrIllegalTransition     = errors.New("registry: illegal delegation status transition")
)

// DelegationRegistry is a concurrency-safe keyed store of Delegations,
// keyed by ReferenceCode.
type DelegationRegistry struct {
	mu          sync.RWMutex
	delegations map[string]Delegation
}

func NewDelegationRegistry() *DelegationRegistry {
	return &DelegationRegistry{delegations: make(map[string]Delegation)}
}

func (r *DelegationRegistry) Delegate(d Delegation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delegations[d.ReferenceCode] = d
}

// UpdateStatus performs a compare-and-set status transition, spec §5
// "compare-and-set where documented (e.g., status transitions)". Backward
// transitions are rejected; a transition to the current status is a no-op
// that succeeds.
func (r *DelegationRegistry) UpdateStatus(refCode string, status DelegationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.delegations[refCode]
	if !ok {
		return ErrDelegationNotFound
	}
	if d.Status == status {
		return nil
	}
	if !legalNext[d.Status][status] {
		return ErrIllegalTransition
	}
	d.Status = status
	r.delegations[refCode] = d
	return nil
}

func (r *DelegationRegistry) Get(refCode string) (Delegation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.delegations[refCode]
	if !ok {
		return Delegation{}, ErrDelegationNotFound
	}
	return d, nil
}

func (r *DelegationRegistry) FindByAssignee(agentId string) []Delegation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Delegation
	for _, d := range r.delegations {
		if d.DelegatedTo == agentId {
			out = append(out, d)
		}
	}
	return out
}

// FindOverdue returns delegations with DueAt < now and status in
// {Pending, InProgress}, spec §4.8 step 1.
func (r *DelegationRegistry) FindOverdue(now time.Time) []Delegation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Delegation
	for _, d := range r.delegations {
		if d.DueAt == nil || !d.DueAt.Before(now) {
			continue
		}
		if d.Status == Pending || d.Status == InProgress {
			out = append(out, d)
		}
	}
	return out
}
