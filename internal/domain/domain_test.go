package domain

import (
	"testing"
	"time"
)

func TestEventValid(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	tests := []struct {
		name string
		ev   Event
		want bool
	}{
		{
			name: "complete event",
			ev:   Event{CalendarID: "1", Start: &start, End: &end},
			want: true,
		},
		{
			name: "zero-length event",
			ev:   Event{CalendarID: "1", Start: &start, End: &start},
			want: true,
		},
		{
			name: "missing calendar",
			ev:   Event{Start: &start, End: &end},
			want: false,
		},
		{
			name: "missing start",
			ev:   Event{CalendarID: "1", End: &end},
			want: false,
		},
		{
			name: "missing end",
			ev:   Event{CalendarID: "1", Start: &start},
			want: false,
		},
		{
			name: "start after end",
			ev:   Event{CalendarID: "1", Start: &end, End: &start},
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.ev.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventRecurring(t *testing.T) {
	t.Parallel()

	ev := Event{}
	if ev.Recurring() {
		t.Error("event without rule reported recurring")
	}
	ev.Recurrence = &RecurrenceRule{Frequency: FreqDaily, Interval: 1}
	if !ev.Recurring() {
		t.Error("event with rule not reported recurring")
	}
}

func TestRuleEndsNever(t *testing.T) {
	t.Parallel()

	until := time.Now()
	if !(&RecurrenceRule{Frequency: FreqDaily}).EndsNever() {
		t.Error("rule without end condition should end never")
	}
	if (&RecurrenceRule{Frequency: FreqDaily, Count: 3}).EndsNever() {
		t.Error("counted rule should not end never")
	}
	if (&RecurrenceRule{Frequency: FreqDaily, Until: &until}).EndsNever() {
		t.Error("bounded rule should not end never")
	}
}
