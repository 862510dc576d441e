package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// maxOccurrences caps expansion of a single rule within one period.
const maxOccurrences = 5000

// ParseRule builds the recurrence rule value anchored at start.
// A leading "RRULE:" is accepted.
func ParseRule(value string, start time.Time) (*rrule.RRule, error) {
	opt, err := rrule.StrToROption(strings.TrimPrefix(value, "RRULE:"))
	if err != nil {
		return nil, fmt.Errorf("parse rrule %q: %w", value, err)
	}
	opt.Dtstart = start

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule %q: %w", value, err)
	}
	return rule, nil
}

// Occurrences returns the start times of o's instances that intersect p.
// Non-recurring objects yield their own start when they intersect p.
// An object without a start, such as a todo with only a due date, is
// placed at its end.
func Occurrences(o *Object, p Period) ([]time.Time, error) {
	if !o.Recurring() {
		start := o.Start
		if start.IsZero() {
			start = o.End
		}
		if p.Overlaps(start, o.End) {
			return []time.Time{start}, nil
		}
		return nil, nil
	}

	rule, err := ParseRule(o.RRule, o.Start)
	if err != nil {
		return nil, err
	}

	length := o.End.Sub(o.Start)
	if length < 0 {
		length = 0
	}

	// An instance starting up to length before p.Start still reaches into p.
	var out []time.Time
	for _, start := range rule.Between(p.Start.Add(-length), p.End, true) {
		if p.Overlaps(start, start.Add(length)) {
			out = append(out, start)
			if len(out) >= maxOccurrences {
				break
			}
		}
	}
	return out, nil
}

// intersects reports whether any instance of o falls within p.
func intersects(o *Object, p Period) (bool, error) {
	occ, err := Occurrences(o, p)
	if err != nil {
		return false, err
	}
	return len(occ) > 0, nil
}
