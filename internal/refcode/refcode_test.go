package refcode

import (
	"testing"
	"time"
)

func TestNewRejectsOutOfRangeSequence(t *testing.T) {
	for _, seq := range []int{0, -1, 10000} {
		if _, err := New(time.Now(), seq); err == nil {
			t.Errorf("New(_, %d) succeeded, want error", seq)
		}
	}
}

func TestStringWidensAtFourDigits(t *testing.T) {
	date := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		seq  int
		want string
	}{
		{1, "CTX-2026-0731-001"},
		{999, "CTX-2026-0731-999"},
		{1000, "CTX-2026-0731-1000"},
	}
	for _, tt := range tests {
		c, err := New(date, tt.seq)
		if err != nil {
			t.Fatalf("New(_, %d): %v", tt.seq, err)
		}
		if got := c.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseRoundTrips(t *testing.T) {
	date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	c, err := New(date, 42)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	parsed, err := Parse(c.String())
	if err != nil {
		t.Fatalf("Parse(%q): %v", c.String(), err)
	}
	if parsed != c {
		t.Fatalf("Parse round-trip = %+v, want %+v", parsed, c)
	}
}

func TestParseAcceptsBackwardCompatibleThreeOrFourDigitSequence(t *testing.T) {
	for _, s := range []string{"CTX-2026-0731-007", "CTX-2026-0731-1234"} {
		if _, err := Parse(s); err != nil {
			t.Errorf("Parse(%q): %v", s, err)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "CTX-2026-731-007", "not-a-code", "CTX-2026-0731-10000"} {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", s)
		}
	}
}

