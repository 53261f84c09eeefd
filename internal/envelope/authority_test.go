package envelope

import (
	"testing"
	"time"
)

func TestTierOrdering(t *testing.T) {
	if !(AskMeFirst < DoItAndShowMe && DoItAndShowMe < JustDoIt) {
		t.Fatal("tier ordering invariant broken: AskMeFirst < DoItAndShowMe < JustDoIt")
	}
}

func TestClaimExpired(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name   string
		claim  AuthorityClaim
		expired bool
	}{
		{"no expiry never expires", AuthorityClaim{}, false},
		{"future expiry not expired", AuthorityClaim{ExpiresAt: &future}, false},
		{"past expiry is expired", AuthorityClaim{ExpiresAt: &past}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.claim.Expired(now); got != tt.expired {
				t.Errorf("Expired() = %v, want %v", got, tt.expired)
			}
		})
	}
}

func TestClaimPermits(t *testing.T) {
	now := time.Now()
	claim := AuthorityClaim{Tier: DoItAndShowMe, PermittedActions: []string{"send-email"}}

	if !claim.Permits("send-email", AskMeFirst, now) {
		t.Error("Permits should allow an action at a lower required tier")
	}
	if !claim.Permits("send-email", DoItAndShowMe, now) {
		t.Error("Permits should allow an action at exactly its own tier")
	}
	if claim.Permits("send-email", JustDoIt, now) {
		t.Error("Permits should reject a required tier above the claim's tier")
	}
	if claim.Permits("delete-account", AskMeFirst, now) {
		t.Error("Permits should reject an action not in PermittedActions")
	}
}

func TestNarrowCapsToRequestedTier(t *testing.T) {
	now := time.Now()
	inbound := []AuthorityClaim{{Tier: JustDoIt, PermittedActions: []string{"send-email"}}}

	got := Narrow(inbound, "send-email", "agent-cos", "agent-draft", DoItAndShowMe, now)
	if len(got) != 1 {
		t.Fatalf("Narrow returned %d claims, want 1", len(got))
	}
	if got[0].Tier != DoItAndShowMe {
		t.Fatalf("Tier = %v, want %v (requested tier caps the ceiling)", got[0].Tier, DoItAndShowMe)
	}
	if got[0].GrantedBy != "agent-cos" || got[0].GrantedTo != "agent-draft" {
		t.Fatalf("GrantedBy/GrantedTo = %s/%s, want agent-cos/agent-draft", got[0].GrantedBy, got[0].GrantedTo)
	}
}

func TestNarrowNoMatchingActionReturnsNil(t *testing.T) {
	now := time.Now()
	inbound := []AuthorityClaim{{Tier: JustDoIt, PermittedActions: []string{"other-action"}}}
	got := Narrow(inbound, "send-email", "agent-cos", "agent-draft", JustDoIt, now)
	if got != nil {
		t.Fatalf("Narrow() = %v, want nil", got)
	}
}

func TestNarrowIgnoresExpiredInboundClaims(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	inbound := []AuthorityClaim{{Tier: JustDoIt, PermittedActions: []string{"send-email"}, ExpiresAt: &past}}
	got := Narrow(inbound, "send-email", "agent-cos", "agent-draft", JustDoIt, now)
	if got != nil {
		t.Fatalf("Narrow() with expired inbound claim = %v, want nil", got)
	}
}

func TestCeilTeamClampsAboveCeiling(t *testing.T) {
	claims := []AuthorityClaim{{Tier: JustDoIt}, {Tier: AskMeFirst}}
	got := CeilTeam(claims, DoItAndShowMe)
	if got[0].Tier != DoItAndShowMe {
		t.Errorf("claims[0].Tier = %v, want %v", got[0].Tier, DoItAndShowMe)
	}
	if got[1].Tier != AskMeFirst {
		t.Errorf("claims[1].Tier = %v, want %v (unaffected, already below ceiling)", got[1].Tier, AskMeFirst)
	}
}

func TestMaxTierEmptyClaimsIsAskMeFirst(t *testing.T) {
	env := Envelope{}
	if got := env.MaxTier(); got != AskMeFirst {
		t.Fatalf("MaxTier() = %v, want %v", got, AskMeFirst)
	}
}

func TestMaxTierReturnsHighest(t *testing.T) {
	env := Envelope{AuthorityClaims: []AuthorityClaim{{Tier: AskMeFirst}, {Tier: JustDoIt}, {Tier: DoItAndShowMe}}}
	if got := env.MaxTier(); got != JustDoIt {
		t.Fatalf("MaxTier() = %v, want %v", got, JustDoIt)
	}
}
