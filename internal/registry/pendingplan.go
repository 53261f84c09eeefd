package registry

import (
	"errors"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/cortexrt/runtime/internal/envelope"
)

// DecomposedTask mirrors envelope.DecomposedTask to avoid a registry→cos
// import cycle; cos converts at the boundary.
type DecomposedTask = envelope.DecomposedTask

// PendingPlan is the paused decomposition of spec §3.7.
type PendingPlan struct {
	PendingReferenceCode string
	OriginalEnvelope     envelope.Envelope
	Tasks                []DecomposedTask
	Summary              string
	StoredAt             time.Time
}

var ErrPendingPlanNotFound = errors.New("registry: pending plan not found")

// pendingPlanTTL bounds how long an unapproved plan stays live before the
// cache's janitor reclaims it — AskMeFirst gating that nobody ever answers
// should not pin memory forever.
const pendingPlanTTL = 72 * time.Hour

// PendingPlanRegistry is backed by patrickmn/go-cache: pending plans are a
// naturally self-expiring store (spec §3.7), and go-cache is listed in the
// teacher's go.mod but never actually imported by teacher code.
type PendingPlanRegistry struct {
	c *cache.Cache
}

func NewPendingPlanRegistry() *PendingPlanRegistry {
	return &PendingPlanRegistry{c: cache.New(pendingPlanTTL, pendingPlanTTL/2)}
}

func (r *PendingPlanRegistry) Store(p PendingPlan) {
	r.c.Set(p.PendingReferenceCode, p, cache.DefaultExpiration)
}

func (r *PendingPlanRegistry) Get(refCode string) (PendingPlan, error) {
	v, ok := r.c.Get(refCode)
	if !ok {
		return PendingPlan{}, ErrPendingPlanNotFound
	}
	return v.(PendingPlan), nil
}

// Remove is idempotent — removing an already-absent code is a no-op, spec
// §4.3 "remove-on-resume is idempotent".
func (r *PendingPlanRegistry) Remove(refCode string) {
	r.c.Delete(refCode)
}
