package calendar

import (
	"testing"
	"time"
)

func TestOccurrences(t *testing.T) {
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC) // Monday
	march := MonthOf(start)

	tests := []struct {
		name   string
		obj    *Object
		period Period
		want   int
	}{
		{
			name:   "single inside",
			obj:    &Object{Start: start, End: start.Add(time.Hour)},
			period: march,
			want:   1,
		},
		{
			name:   "single outside",
			obj:    &Object{Start: start, End: start.Add(time.Hour)},
			period: MonthOf(start.AddDate(0, 1, 0)),
			want:   0,
		},
		{
			name:   "due only inside",
			obj:    &Object{End: start},
			period: march,
			want:   1,
		},
		{
			name:   "due only after",
			obj:    &Object{End: start.AddDate(0, 1, 0)},
			period: march,
			want:   0,
		},
		{
			name:   "daily count",
			obj:    &Object{Start: start, End: start.Add(15 * time.Minute), RRule: "FREQ=DAILY;COUNT=5"},
			period: march,
			want:   5,
		},
		{
			name:   "prefixed rule",
			obj:    &Object{Start: start, End: start.Add(15 * time.Minute), RRule: "RRULE:FREQ=WEEKLY;COUNT=3"},
			period: march,
			want:   3,
		},
		{
			name:   "weekly into next month",
			obj:    &Object{Start: start, End: start.Add(time.Hour), RRule: "FREQ=WEEKLY"},
			period: MonthOf(start.AddDate(0, 1, 0)),
			want:   5, // April 1, 8, 15, 22, 29
		},
		{
			name: "instance straddling period start",
			obj: &Object{
				Start: time.Date(2024, 2, 29, 22, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC),
				RRule: "FREQ=DAILY;COUNT=1",
			},
			period: march,
			want:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Occurrences(tt.obj, tt.period)
			if err != nil {
				t.Fatalf("Occurrences() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Occurrences() = %d instances, want %d (%v)", len(got), tt.want, got)
			}
		})
	}
}

func TestOccurrences_InvalidRule(t *testing.T) {
	o := &Object{
		Start: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		RRule: "FREQ=SOMETIMES",
	}
	if _, err := Occurrences(o, MonthOf(o.Start)); err == nil {
		t.Error("expected error for invalid rule")
	}
}

func TestOccurrences_Capped(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	o := &Object{Start: start, End: start, RRule: "FREQ=MINUTELY"}

	got, err := Occurrences(o, Period{Start: start, End: start.AddDate(0, 1, 0)})
	if err != nil {
		t.Fatalf("Occurrences() error = %v", err)
	}
	if len(got) != maxOccurrences {
		t.Errorf("Occurrences() = %d, want cap %d", len(got), maxOccurrences)
	}
}

func TestParseRule(t *testing.T) {
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	rule, err := ParseRule("RRULE:FREQ=DAILY;COUNT=2", start)
	if err != nil {
		t.Fatalf("ParseRule() error = %v", err)
	}
	if got := rule.All(); len(got) != 2 || !got[0].Equal(start) {
		t.Errorf("All() = %v, want 2 instances from %v", got, start)
	}

	if _, err := ParseRule("FREQ=BOGUS", start); err == nil {
		t.Error("ParseRule(FREQ=BOGUS) succeeded, want error")
	}
}
