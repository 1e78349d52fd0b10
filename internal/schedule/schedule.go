// Package schedule normalizes free-form reminder phrases (Thai or English)
// into a machine-evaluable recurrence and decides whether a given instant
// falls on a day the schedule fires.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// everyDay is the weekday bitmask with all seven days set.
const everyDay uint8 = 0x7F

// Schedule is a normalized reminder recurrence. Exactly one of the two
// forms is populated: a weekday set (Days non-zero, possibly all seven)
// or a day interval (Every >= 2). At is always set.
type Schedule struct {
	Days  uint8  // weekday bitmask, bit n = time.Weekday(n)
	Every int    // fire every N days; 0 for weekday schedules
	At    string // time of day, 24-hour "HH:MM"
}

// displayOrder renders weeks Monday-first.
var displayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// String renders the canonical display form. Re-normalizing the result
// always yields an identical schedule.
//
//	Daily 09:00
//	Tuesday,Thursday 20:00
//	Every 3 days 09:00
func (s Schedule) String() string {
	if s.Every >= 2 {
		return fmt.Sprintf("Every %d days %s", s.Every, s.At)
	}
	if s.Days == everyDay {
		return "Daily " + s.At
	}
	var names []string
	for _, d := range displayOrder {
		if s.Days&(1<<uint(d)) != 0 {
			names = append(names, d.String())
		}
	}
	return strings.Join(names, ",") + " " + s.At
}

// Matches reports whether t falls on a day the schedule fires. The check
// is date-granular: the time of day is carried for display and for
// choosing when the evaluation cycle runs, not as a gate here. Interval
// schedules are anchored to the epoch day count so the result is a pure
// function of the instant.
func (s Schedule) Matches(t time.Time) bool {
	if s.Every >= 2 {
		return DayIndex(t)%s.Every == 0
	}
	return s.Days&(1<<uint(t.Weekday())) != 0
}

// DayIndex returns the ordinal of t's calendar date in t's location,
// counted from 1970-01-01. Two instants share a reminder window exactly
// when their day indexes are equal.
func DayIndex(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// MarshalJSON encodes the schedule as its canonical string.
func (s Schedule) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", s.String())), nil
}

// UnmarshalJSON decodes a canonical schedule string.
func (s *Schedule) UnmarshalJSON(b []byte) error {
	str := strings.Trim(string(b), `"`)
	parsed, err := Normalize(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseError reports a phrase the normalizer or date parser could not
// interpret. Callers re-prompt; they never guess.
type ParseError struct {
	Phrase string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("cannot parse %q: %s", e.Phrase, e.Hint)
	}
	return fmt.Sprintf("cannot parse %q", e.Phrase)
}
