package registry

import (
	"testing"
	"time"

	"github.com/cortexrt/runtime/internal/envelope"
)

func TestAuthorityRegistryGrantAndHasAuthority(t *testing.T) {
	r := NewAuthorityRegistry()
	r.Grant("agent-a", "research", envelope.AuthorityClaim{
		GrantedTo:        "agent-a",
		Tier:             envelope.DoItAndShowMe,
		PermittedActions: []string{"research"},
		GrantedAt:        time.Now(),
	})

	if !r.HasAuthority("agent-a", "research", envelope.AskMeFirst) {
		t.Error("HasAuthority at a lower tier than granted = false, want true")
	}
	if r.HasAuthority("agent-a", "research", envelope.JustDoIt) {
		t.Error("HasAuthority at a higher tier than granted = true, want false")
	}
	if r.HasAuthority("agent-a", "draft", envelope.AskMeFirst) {
		t.Error("HasAuthority for an ungranted action = true, want false")
	}
	if r.HasAuthority("agent-b", "research", envelope.AskMeFirst) {
		t.Error("HasAuthority for an ungranted agent = true, want false")
	}
}

func TestAuthorityRegistryExpiredClaimDoesNotGrantAuthority(t *testing.T) {
	r := NewAuthorityRegistry()
	past := time.Now().Add(-time.Hour)
	r.Grant("agent-a", "research", envelope.AuthorityClaim{
		GrantedTo:        "agent-a",
		Tier:             envelope.JustDoIt,
		PermittedActions: []string{"research"},
		ExpiresAt:        &past,
	})

	if r.HasAuthority("agent-a", "research", envelope.AskMeFirst) {
		t.Error("HasAuthority with an expired claim = true, want false")
	}
}

func TestAuthorityRegistryRevoke(t *testing.T) {
	r := NewAuthorityRegistry()
	r.Grant("agent-a", "research", envelope.AuthorityClaim{GrantedTo: "agent-a", Tier: envelope.JustDoIt, PermittedActions: []string{"research"}})
	r.Revoke("agent-a", "research")

	if r.HasAuthority("agent-a", "research", envelope.AskMeFirst) {
		t.Error("HasAuthority after Revoke = true, want false")
	}
	if _, ok := r.GetClaim("agent-a", "research"); ok {
		t.Error("GetClaim after Revoke found a claim, want none")
	}
}

func TestAuthorityRegistryGetClaim(t *testing.T) {
	r := NewAuthorityRegistry()
	want := envelope.AuthorityClaim{GrantedTo: "agent-a", Tier: envelope.DoItAndShowMe, PermittedActions: []string{"research"}}
	r.Grant("agent-a", "research", want)

	got, ok := r.GetClaim("agent-a", "research")
	if !ok {
		t.Fatal("GetClaim = not found, want found")
	}
	if got.Tier != want.Tier {
		t.Errorf("GetClaim().Tier = %v, want %v", got.Tier, want.Tier)
	}
}
