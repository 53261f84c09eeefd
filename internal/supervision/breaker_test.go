package supervision

import (
	"testing"
	"time"
)

func TestBreakerTripsAtThreshold(t *testing.T) {
	r := NewBreakerRegistry(3, 30*time.Minute)
	now := time.Now()

	if r.RecordFailure("agent-a", now) {
		t.Fatal("tripped on 1st failure, want closed")
	}
	if r.RecordFailure("agent-a", now) {
		t.Fatal("tripped on 2nd failure, want closed")
	}
	if !r.RecordFailure("agent-a", now) {
		t.Fatal("did not trip on 3rd failure, want tripped")
	}
}

func TestBreakerDoesNotRetripWhileOpen(t *testing.T) {
	r := NewBreakerRegistry(1, 30*time.Minute)
	now := time.Now()

	if !r.RecordFailure("agent-a", now) {
		t.Fatal("did not trip on 1st failure with threshold 1")
	}
	if r.RecordFailure("agent-a", now) {
		t.Fatal("retripped while already open, want false")
	}
}

func TestBreakerReadyForProbeAfterCooldown(t *testing.T) {
	r := NewBreakerRegistry(1, time.Minute)
	now := time.Now()
	r.RecordFailure("agent-a", now)

	if got := r.ReadyForProbe(now); len(got) != 0 {
		t.Fatalf("ReadyForProbe before cooldown = %v, want empty", got)
	}

	later := now.Add(2 * time.Minute)
	got := r.ReadyForProbe(later)
	if len(got) != 1 || got[0] != "agent-a" {
		t.Fatalf("ReadyForProbe after cooldown = %v, want [agent-a]", got)
	}

	// Second call should not re-report the same breaker as newly ready —
	// it is now HalfOpen, not Open.
	if got := r.ReadyForProbe(later.Add(time.Minute)); len(got) != 0 {
		t.Fatalf("ReadyForProbe for already-HalfOpen breaker = %v, want empty", got)
	}
}

func TestBreakerRecordSuccessResetsFailureCount(t *testing.T) {
	r := NewBreakerRegistry(3, 30*time.Minute)
	now := time.Now()
	r.RecordFailure("agent-a", now)
	r.RecordFailure("agent-a", now)
	r.RecordSuccess("agent-a")

	// After a reset, it should take the full threshold again to trip.
	if r.RecordFailure("agent-a", now) {
		t.Fatal("tripped on 1st failure after reset, want closed")
	}
	if r.RecordFailure("agent-a", now) {
		t.Fatal("tripped on 2nd failure after reset, want closed")
	}
}

func TestBreakerRecordSuccessOnUnknownAgentIsNoop(t *testing.T) {
	r := NewBreakerRegistry(3, 30*time.Minute)
	r.RecordSuccess("never-seen") // must not panic
}
