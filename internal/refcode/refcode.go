// Package refcode implements the reference-code value type and the
// monotonic, persistent, daily-reset generator described in spec §3.1/§4.1.
package refcode

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// matches backward-compatible reference codes per spec §3.1:
// "any string matching CTX-\d{4}-\d{4}-\d{3,4} is valid."
var pattern = regexp.MustCompile(`^CTX-(\d{4})-(\d{4})-(\d{3,4})$`)

// Code is a value-typed, immutable reference code. Equality is by value —
// two Codes built from the same date/sequence compare equal.
type Code struct {
	year, month, day int
	sequence         int
}

// New constructs a Code for the given UTC date and sequence. It rejects
// sequences outside (0, 9999] per spec §3.1.
func New(date time.Time, sequence int) (Code, error) {
	if sequence <= 0 || sequence > 9999 {
		return Code{}, fmt.Errorf("refcode: sequence %d out of range (1-9999)", sequence)
	}
	date = date.UTC()
	return Code{year: date.Year(), month: int(date.Month()), day: date.Day(), sequence: sequence}, nil
}

// Parse accepts any string matching the backward-compatible regex, spec
// §3.1, and round-trips through String().
func Parse(s string) (Code, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Code{}, fmt.Errorf("refcode: %q does not match CTX-YYYY-MMDD-NNN[N]", s)
	}
	year, _ := strconv.Atoi(m[1])
	mmdd, _ := strconv.Atoi(m[2])
	seq, _ := strconv.Atoi(m[3])
	if seq <= 0 || seq > 9999 {
		return Code{}, fmt.Errorf("refcode: sequence %d out of range (1-9999)", seq)
	}
	return Code{year: year, month: mmdd / 100, day: mmdd % 100, sequence: seq}, nil
}

// String renders CTX-YYYY-MMDD-NNN, widening to four digits once the
// sequence exceeds 999 (spec §8 "Sequence at 999: next value is -1000 with
// the 4-digit widening").
func (c Code) String() string {
	width := 3
	if c.sequence > 999 {
		width = 4
	}
	return fmt.Sprintf("CTX-%04d-%02d%02d-%0*d", c.year, c.month, c.day, width, c.sequence)
}

func (c Code) Sequence() int { return c.sequence }

func (c Code) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c *Code) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
