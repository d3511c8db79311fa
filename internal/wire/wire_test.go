package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"calbridge/internal/calerr"
	"calbridge/internal/domain"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	args := map[string]any{
		FieldCalendarID:     "cal-1",
		FieldEventID:        "ev-1",
		FieldTitle:          "planning",
		FieldDescription:    "q3 planning",
		FieldLocation:       "hq",
		FieldURL:            "https://example.test/planning",
		FieldStart:          start.UnixMilli(),
		FieldEnd:            end.UnixMilli(),
		FieldAllDay:         false,
		FieldRecurrenceRule: "FREQ=WEEKLY;INTERVAL=2;COUNT=4",
		FieldEventStatus:    "confirmed",
		FieldAvailability:   "busy",
		FieldEventColor:     "blue",
		FieldAttendees: []any{
			map[string]any{
				"email":         "p@example.test",
				"name":          "P",
				"role":          "required",
				"status":        "accepted",
				"isCurrentUser": true,
			},
		},
		FieldOrganizer: map[string]any{
			"email": "o@example.test",
			"role":  "chair",
		},
		FieldReminders: []any{
			map[string]any{"minutes": int64(10)},
			map[string]any{"minutes": float64(30)},
		},
	}

	got, err := DecodeEvent(args, time.UTC)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}

	want := &domain.Event{
		CalendarID:  "cal-1",
		ID:          "ev-1",
		Title:       "planning",
		Description: "q3 planning",
		Location:    "hq",
		URL:         "https://example.test/planning",
		Start:       timePtr(start),
		End:         timePtr(end),
		Recurrence: &domain.RecurrenceRule{
			Frequency: domain.FreqWeekly,
			Interval:  2,
			Count:     4,
		},
		Attendees: []domain.Attendee{
			{Email: "p@example.test", Name: "P", Role: domain.RoleRequired, Status: domain.AttendeeAccepted, IsCurrentUser: true},
		},
		Reminders:    []domain.Reminder{{Minutes: 10}, {Minutes: 30}},
		Status:       domain.StatusConfirmed,
		Availability: domain.AvailabilityBusy,
		Organizer:    &domain.Attendee{Email: "o@example.test", Role: domain.RoleChair, Status: domain.AttendeeUnknown},
		Color:        "blue",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeEvent mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeEventReattachesLocation(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("zoneinfo unavailable: %v", err)
	}
	start := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	got, err := DecodeEvent(map[string]any{FieldStart: start.UnixMilli()}, loc)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if got.Start.Location() != loc {
		t.Errorf("Start location = %v, want %v", got.Start.Location(), loc)
	}
	if !got.Start.Equal(start) {
		t.Errorf("Start instant changed: %v != %v", got.Start, start)
	}
}

func TestDecodeEventRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args map[string]any
	}{
		{"unknown field", map[string]any{"frobnicate": 1}},
		{"title wrong type", map[string]any{FieldTitle: 42}},
		{"start not millis", map[string]any{FieldStart: "tomorrow"}},
		{"start fractional", map[string]any{FieldStart: 1.5}},
		{"allDay wrong type", map[string]any{FieldAllDay: "yes"}},
		{"rule wrong type", map[string]any{FieldRecurrenceRule: 7}},
		{"rule missing freq", map[string]any{FieldRecurrenceRule: "INTERVAL=2"}},
		{"unknown status", map[string]any{FieldEventStatus: "maybe"}},
		{"unknown availability", map[string]any{FieldAvailability: "sometimes"}},
		{"attendees not a list", map[string]any{FieldAttendees: "nobody"}},
		{"attendee missing email", map[string]any{FieldAttendees: []any{map[string]any{"name": "X"}}}},
		{"attendee unknown field", map[string]any{FieldAttendees: []any{map[string]any{"email": "x@y", "phone": "1"}}}},
		{"attendee unknown role", map[string]any{FieldAttendees: []any{map[string]any{"email": "x@y", "role": "boss"}}}},
		{"organizer not a map", map[string]any{FieldOrganizer: "o@example.test"}},
		{"reminder not a map", map[string]any{FieldReminders: []any{5}}},
		{"reminder minutes wrong type", map[string]any{FieldReminders: []any{map[string]any{"minutes": "ten"}}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeEvent(tt.args, time.UTC)
			if !calerr.IsKind(err, calerr.KindInvalidArgument) {
				t.Errorf("error = %v, want INVALID_ARGUMENT", err)
			}
		})
	}
}

func TestEncodeEvent(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	ev := &domain.Event{
		CalendarID: "cal-1",
		ID:         "ev-1",
		Title:      "planning",
		Start:      &start,
		End:        &end,
		Recurrence: &domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1, Count: 3},
		Reminders:  []domain.Reminder{{Minutes: 10}},
		Status:     domain.StatusConfirmed,
	}

	got := EncodeEvent(ev)

	want := map[string]any{
		FieldCalendarID:     "cal-1",
		FieldEventID:        "ev-1",
		FieldTitle:          "planning",
		FieldAllDay:         false,
		FieldStart:          start.UnixMilli(),
		FieldEnd:            end.UnixMilli(),
		FieldRecurrenceRule: "FREQ=DAILY;COUNT=3",
		FieldEventStatus:    "confirmed",
		FieldReminders:      []any{map[string]any{"minutes": int64(10)}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("EncodeEvent mismatch (-want +got):\n%s", diff)
	}

	// Absent optionals must be omitted, not sent as empty values.
	for _, field := range []string{FieldDescription, FieldLocation, FieldURL, FieldOriginalStart, FieldAvailability, FieldOrganizer, FieldAttendees} {
		if _, ok := got[field]; ok {
			t.Errorf("field %q present for absent value", field)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)
	want := &domain.Event{
		CalendarID: "cal-9",
		ID:         "ev-9",
		Title:      "retro",
		Start:      &start,
		End:        &end,
		AllDay:     false,
		Recurrence: &domain.RecurrenceRule{
			Frequency: domain.FreqMonthly,
			Interval:  1,
			ByDays:    []domain.ByDay{{Day: domain.Friday, Ordinal: -1}},
		},
		Attendees: []domain.Attendee{
			{Email: "r@example.test", Role: domain.RoleOptional, Status: domain.AttendeeTentative},
		},
		Reminders:    []domain.Reminder{{Minutes: 5}},
		Status:       domain.StatusTentative,
		Availability: domain.AvailabilityFree,
	}

	got, err := DecodeEvent(EncodeEvent(want), time.UTC)
	if err != nil {
		t.Fatalf("DecodeEvent(EncodeEvent()): %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeOccurrenceArgs(t *testing.T) {
	t.Parallel()

	occ := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)

	got, err := DecodeOccurrenceArgs(map[string]any{
		FieldCalendarID:         "cal-1",
		FieldEventID:            "ev-1",
		FieldStartDate:          occ.UnixMilli(),
		FieldFollowingInstances: true,
	})
	if err != nil {
		t.Fatalf("DecodeOccurrenceArgs: %v", err)
	}
	want := &OccurrenceArgs{
		CalendarID:         "cal-1",
		EventID:            "ev-1",
		StartDate:          occ,
		FollowingInstances: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeOccurrenceArgsAcceptsJSONNumber(t *testing.T) {
	t.Parallel()

	got, err := DecodeOccurrenceArgs(map[string]any{
		FieldCalendarID: "cal-1",
		FieldEventID:    "ev-1",
		FieldStartDate:  json.Number("1785751200000"),
	})
	if err != nil {
		t.Fatalf("DecodeOccurrenceArgs: %v", err)
	}
	if got.StartDate.UnixMilli() != 1785751200000 {
		t.Errorf("StartDate = %v", got.StartDate)
	}
}

func TestDecodeOccurrenceArgsRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing startDate", map[string]any{FieldCalendarID: "c", FieldEventID: "e"}},
		{"startDate wrong type", map[string]any{FieldStartDate: "noon"}},
		{"unknown field", map[string]any{FieldStartDate: int64(1), "cascade": true}},
		{"following wrong type", map[string]any{FieldStartDate: int64(1), FieldFollowingInstances: "yes"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeOccurrenceArgs(tt.args)
			if !calerr.IsKind(err, calerr.KindInvalidArgument) {
				t.Errorf("error = %v, want INVALID_ARGUMENT", err)
			}
		})
	}
}
