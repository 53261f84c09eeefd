package envelope

import "time"

// Tier is the total-ordered authority tier from spec §3.5: AskMeFirst <
// DoItAndShowMe < JustDoIt. Integer ordering doubles as the "≥" comparison
// hasAuthority and the narrowing invariant both need.
type Tier int

const (
	AskMeFirst Tier = iota
	DoItAndShowMe
	JustDoIt
)

func (t Tier) String() string {
	switch t {
	case AskMeFirst:
		return "AskMeFirst"
	case DoItAndShowMe:
		return "DoItAndShowMe"
	case JustDoIt:
		return "JustDoIt"
	default:
		return "Unknown"
	}
}

// ParseTier maps the wire's camelCase enum strings back to a Tier.
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "askMeFirst":
		return AskMeFirst, true
	case "doItAndShowMe":
		return DoItAndShowMe, true
	case "justDoIt":
		return JustDoIt, true
	default:
		return 0, false
	}
}

func (t Tier) MarshalJSON() ([]byte, error) {
	names := map[Tier]string{AskMeFirst: "askMeFirst", DoItAndShowMe: "doItAndShowMe", JustDoIt: "justDoIt"}
	return []byte(`"` + names[t] + `"`), nil
}

func (t *Tier) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 {
		s = s[1 : len(s)-1]
	}
	if parsed, ok := ParseTier(s); ok {
		*t = parsed
	}
	return nil
}

// AuthorityClaim is a single grant carried on an envelope, spec §3.5.
type AuthorityClaim struct {
	GrantedBy        string     `json:"grantedBy"`
	GrantedTo        string     `json:"grantedTo"`
	Tier             Tier       `json:"tier"`
	PermittedActions []string   `json:"permittedActions"`
	GrantedAt        time.Time  `json:"grantedAt"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the claim's validity window has passed as of now.
func (c AuthorityClaim) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Permits reports whether the claim covers action at least at minTier and
// has not expired.
func (c AuthorityClaim) Permits(action string, minTier Tier, now time.Time) bool {
	if c.Expired(now) {
		return false
	}
	if c.Tier < minTier {
		return false
	}
	for _, a := range c.PermittedActions {
		if a == action {
			return true
		}
	}
	return false
}

// Narrow implements the outbound-narrowing invariant of spec §3.5/§9: a
// message synthesised while processing an inbound envelope may carry a tier
// no higher than the highest valid inbound tier for the same action, further
// capped by requestedTier (e.g. a task's own requested tier, spec §4.7.2
// step 3 "task's requested tier further caps"). The returned claims are
// fresh copies granted by grantedBy to grantedTo; PermittedActions and
// ExpiresAt are carried forward from the highest-tier matching inbound
// claim, the one that sets the ceiling.
func Narrow(inbound []AuthorityClaim, action, grantedBy, grantedTo string, requestedTier Tier, now time.Time) []AuthorityClaim {
	var ceiling Tier = -1
	var actions []string
	var expires *time.Time
	for _, c := range inbound {
		if c.Expired(now) {
			continue
		}
		for _, a := range c.PermittedActions {
			if a == action {
				if c.Tier > ceiling {
					ceiling = c.Tier
					actions = c.PermittedActions
					expires = c.ExpiresAt
				}
			}
		}
	}
	if ceiling < 0 {
		return nil
	}
	tier := ceiling
	if requestedTier < tier {
		tier = requestedTier
	}
	return []AuthorityClaim{{
		GrantedBy:        grantedBy,
		GrantedTo:        grantedTo,
		Tier:             tier,
		PermittedActions: actions,
		GrantedAt:        now,
		ExpiresAt:        expires,
	}}
}

// CeilTeam applies a team authority ceiling (spec §4.5 step 1: "every
// outbound claim's tier must be ≤ the ceiling") to a claim set, returning a
// new slice with any claim above the ceiling clamped down.
func CeilTeam(claims []AuthorityClaim, ceiling Tier) []AuthorityClaim {
	out := make([]AuthorityClaim, len(claims))
	for i, c := range claims {
		if c.Tier > ceiling {
			c.Tier = ceiling
		}
		out[i] = c
	}
	return out
}
