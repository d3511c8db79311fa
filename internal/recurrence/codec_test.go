package recurrence

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"calbridge/internal/domain"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestParse(t *testing.T) {
	t.Parallel()

	until := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  *domain.RecurrenceRule
	}{
		{
			name:  "daily minimal",
			input: "FREQ=DAILY",
			want:  &domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1},
		},
		{
			name:  "weekly with interval and count",
			input: "FREQ=WEEKLY;INTERVAL=2;COUNT=10",
			want:  &domain.RecurrenceRule{Frequency: domain.FreqWeekly, Interval: 2, Count: 10},
		},
		{
			name:  "until parses restricted layout",
			input: "FREQ=DAILY;UNTIL=20260301T103000Z",
			want:  &domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1, Until: timePtr(until)},
		},
		{
			name:  "count wins over until",
			input: "FREQ=DAILY;UNTIL=20260301T103000Z;COUNT=5",
			want:  &domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1, Count: 5},
		},
		{
			name:  "count wins regardless of key order",
			input: "FREQ=DAILY;COUNT=5;UNTIL=20260301T103000Z",
			want:  &domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1, Count: 5},
		},
		{
			name:  "malformed until leaves rule open ended",
			input: "FREQ=MONTHLY;UNTIL=not-a-date",
			want:  &domain.RecurrenceRule{Frequency: domain.FreqMonthly, Interval: 1},
		},
		{
			name:  "byday plain and ordinal tokens",
			input: "FREQ=MONTHLY;BYDAY=FR,3MO,-1FR",
			want: &domain.RecurrenceRule{
				Frequency: domain.FreqMonthly,
				Interval:  1,
				ByDays: []domain.ByDay{
					{Day: domain.Friday},
					{Day: domain.Monday, Ordinal: 3},
					{Day: domain.Friday, Ordinal: -1},
				},
			},
		},
		{
			name:  "byday drops malformed tokens and keeps the rest",
			input: "FREQ=WEEKLY;BYDAY=MO,XX,99,WE",
			want: &domain.RecurrenceRule{
				Frequency: domain.FreqWeekly,
				Interval:  1,
				ByDays: []domain.ByDay{
					{Day: domain.Monday},
					{Day: domain.Wednesday},
				},
			},
		},
		{
			name:  "numeric by lists",
			input: "FREQ=YEARLY;BYMONTH=1,7;BYMONTHDAY=1,15,-1;BYSETPOS=-1",
			want: &domain.RecurrenceRule{
				Frequency:   domain.FreqYearly,
				Interval:    1,
				ByMonths:    []int{1, 7},
				ByMonthDays: []int{1, 15, -1},
				BySetPos:    []int{-1},
			},
		},
		{
			name:  "non-integer list entries are dropped",
			input: "FREQ=MONTHLY;BYMONTHDAY=1,abc,15",
			want: &domain.RecurrenceRule{
				Frequency:   domain.FreqMonthly,
				Interval:    1,
				ByMonthDays: []int{1, 15},
			},
		},
		{
			name:  "unknown keys are ignored",
			input: "FREQ=DAILY;WKST=MO;X-CUSTOM=1",
			want:  &domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1},
		},
		{
			name:  "invalid interval falls back to one",
			input: "FREQ=DAILY;INTERVAL=0",
			want:  &domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1},
		},
		{
			name:  "lowercase keys and values",
			input: "freq=weekly;interval=3",
			want:  &domain.RecurrenceRule{Frequency: domain.FreqWeekly, Interval: 3},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"empty string", ""},
		{"whitespace only", "   "},
		{"missing freq", "INTERVAL=2;COUNT=3"},
		{"unknown freq value", "FREQ=HOURLY"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Parse(tt.input); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	until := time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name string
		rule *domain.RecurrenceRule
		want string
	}{
		{
			name: "minimal daily omits defaults",
			rule: &domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1},
			want: "FREQ=DAILY",
		},
		{
			name: "interval emitted only above one",
			rule: &domain.RecurrenceRule{Frequency: domain.FreqWeekly, Interval: 2},
			want: "FREQ=WEEKLY;INTERVAL=2",
		},
		{
			name: "byday with ordinals",
			rule: &domain.RecurrenceRule{
				Frequency: domain.FreqMonthly,
				Interval:  1,
				ByDays: []domain.ByDay{
					{Day: domain.Monday, Ordinal: 3},
					{Day: domain.Friday, Ordinal: -1},
					{Day: domain.Sunday},
				},
			},
			want: "FREQ=MONTHLY;BYDAY=3MO,-1FR,SU",
		},
		{
			name: "count emitted over until",
			rule: &domain.RecurrenceRule{
				Frequency: domain.FreqDaily,
				Interval:  1,
				Count:     4,
				Until:     timePtr(until),
			},
			want: "FREQ=DAILY;COUNT=4",
		},
		{
			name: "until formatted in restricted layout",
			rule: &domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1, Until: timePtr(until)},
			want: "FREQ=DAILY;UNTIL=20261231T235959Z",
		},
		{
			name: "all numeric lists in stable order",
			rule: &domain.RecurrenceRule{
				Frequency:   domain.FreqYearly,
				Interval:    1,
				ByMonthDays: []int{1, -1},
				ByMonths:    []int{6},
				ByYearDays:  []int{100},
				ByWeekNos:   []int{20},
				BySetPos:    []int{-1},
			},
			want: "FREQ=YEARLY;BYMONTHDAY=1,-1;BYMONTH=6;BYYEARDAY=100;BYWEEKNO=20;BYSETPOS=-1",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Generate(tt.rule); got != tt.want {
				t.Errorf("Generate() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Every rule the generator can emit must survive a parse round trip.
func TestGenerateParseRoundTrip(t *testing.T) {
	t.Parallel()

	until := time.Date(2027, 1, 15, 8, 0, 0, 0, time.UTC)

	rules := []*domain.RecurrenceRule{
		{Frequency: domain.FreqDaily, Interval: 1},
		{Frequency: domain.FreqDaily, Interval: 1, Count: 5},
		{Frequency: domain.FreqWeekly, Interval: 2, Until: timePtr(until)},
		{
			Frequency: domain.FreqWeekly,
			Interval:  1,
			ByDays:    []domain.ByDay{{Day: domain.Monday}, {Day: domain.Wednesday}, {Day: domain.Friday}},
		},
		{
			Frequency: domain.FreqMonthly,
			Interval:  3,
			ByDays:    []domain.ByDay{{Day: domain.Friday, Ordinal: -1}},
			Count:     12,
		},
		{
			Frequency:   domain.FreqYearly,
			Interval:    1,
			ByMonths:    []int{3, 9},
			ByMonthDays: []int{15},
			BySetPos:    []int{1},
		},
		{
			Frequency:  domain.FreqYearly,
			Interval:   1,
			ByYearDays: []int{1, 100, -1},
			ByWeekNos:  []int{52},
		},
	}

	for _, rule := range rules {
		rule := rule
		t.Run(Generate(rule), func(t *testing.T) {
			t.Parallel()
			got, err := Parse(Generate(rule))
			if err != nil {
				t.Fatalf("Parse(Generate()) returned error: %v", err)
			}
			if diff := cmp.Diff(rule, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
