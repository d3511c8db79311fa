package ics

import (
	"strings"
	"testing"
	"time"

	"calbridge/internal/domain"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestExport(t *testing.T) {
	t.Parallel()

	cal := domain.Calendar{ID: "cal-1", Name: "Team"}
	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	events := []domain.Event{
		{
			CalendarID:  "cal-1",
			ID:          "ev-1",
			Title:       "standup",
			Description: "daily standup",
			Location:    "room 1",
			Start:       &start,
			End:         &end,
			Recurrence:  &domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1, Count: 5},
			Status:      domain.StatusConfirmed,
			Organizer:   &domain.Attendee{Email: "o@example.test"},
			Attendees:   []domain.Attendee{{Email: "a@example.test"}},
		},
	}

	out := Export(cal, events)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"END:VCALENDAR",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:Team",
		"UID:cal-1-ev-1@calbridge",
		"SUMMARY:standup",
		"RRULE:FREQ=DAILY;COUNT=5",
		"STATUS:CONFIRMED",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("serialized calendar missing %q:\n%s", want, out)
		}
	}
}

// Events without both instants are skipped, never fail the export.
func TestExportSkipsIncompleteEvents(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	events := []domain.Event{
		{CalendarID: "cal-1", ID: "broken", Title: "no end", Start: &start},
		{CalendarID: "cal-1", ID: "ok", Title: "whole", Start: &start, End: timePtr(start.Add(time.Hour))},
	}

	out := Export(domain.Calendar{ID: "cal-1"}, events)
	if strings.Contains(out, "broken") {
		t.Errorf("incomplete event was exported:\n%s", out)
	}
	if !strings.Contains(out, "cal-1-ok@calbridge") {
		t.Errorf("complete event missing:\n%s", out)
	}
}

// Instances of a series get distinct identifiers.
func TestExportInstanceUIDs(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	second := start.AddDate(0, 0, 1)

	events := []domain.Event{
		{CalendarID: "c", ID: "ev", Title: "a", Start: &start, End: timePtr(start.Add(time.Hour)), OriginalStart: &start},
		{CalendarID: "c", ID: "ev", Title: "a", Start: &second, End: timePtr(second.Add(time.Hour)), OriginalStart: &second},
	}

	out := Export(domain.Calendar{ID: "c"}, events)
	first := eventUID("c", events[0])
	next := eventUID("c", events[1])
	if first == next {
		t.Fatalf("instance uids collide: %q", first)
	}
	if !strings.Contains(out, first) || !strings.Contains(out, next) {
		t.Errorf("instance uids missing from output:\n%s", out)
	}
}
