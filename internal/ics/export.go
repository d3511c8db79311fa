// Package ics renders normalized events into an iCalendar document. All
// RFC-5545 formatting is delegated to the underlying library; this layer
// only maps domain fields onto VEVENT properties.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"calbridge/internal/domain"
	appLog "calbridge/internal/log"
	"calbridge/internal/recurrence"
)

// Export serializes a calendar's events into a single VCALENDAR payload.
// Recurring masters keep their rule as an RRULE line; events without
// both instants are skipped with a diagnostic rather than failing the
// whole export.
func Export(cal domain.Calendar, events []domain.Event) string {
	doc := ical.NewCalendar()
	doc.SetMethod(ical.MethodPublish)
	doc.SetProductId("-//calbridge//EN")
	if cal.Name != "" {
		doc.SetXWRCalName(cal.Name)
	}

	now := time.Now().UTC()
	for _, ev := range events {
		if ev.Start == nil || ev.End == nil {
			appLog.Warn("ics export: skipped event without instants",
				"calendar_id", ev.CalendarID, "event_id", ev.ID)
			continue
		}

		ve := doc.AddEvent(eventUID(cal.ID, ev))
		ve.SetDtStampTime(now)
		if ev.AllDay {
			ve.SetAllDayStartAt(*ev.Start)
			ve.SetAllDayEndAt(*ev.End)
		} else {
			ve.SetStartAt(*ev.Start)
			ve.SetEndAt(*ev.End)
		}
		if ev.Title != "" {
			ve.SetSummary(ev.Title)
		}
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.URL != "" {
			ve.SetURL(ev.URL)
		}
		if ev.Recurrence != nil {
			ve.AddRrule(recurrence.Generate(ev.Recurrence))
		}
		switch ev.Status {
		case domain.StatusConfirmed:
			ve.SetStatus(ical.ObjectStatusConfirmed)
		case domain.StatusTentative:
			ve.SetStatus(ical.ObjectStatusTentative)
		case domain.StatusCanceled:
			ve.SetStatus(ical.ObjectStatusCancelled)
		}
		if ev.Organizer != nil && ev.Organizer.Email != "" {
			ve.SetOrganizer(ev.Organizer.Email)
		}
		for _, a := range ev.Attendees {
			ve.AddAttendee(a.Email)
		}
	}

	return doc.Serialize()
}

// eventUID gives each VEVENT a stable identifier; instances of a series
// are disambiguated by their occurrence start.
func eventUID(calendarID string, ev domain.Event) string {
	uid := fmt.Sprintf("%s-%s@calbridge", calendarID, ev.ID)
	if ev.OriginalStart != nil {
		uid = fmt.Sprintf("%s-%s-%d@calbridge", calendarID, ev.ID, ev.OriginalStart.UnixMilli())
	}
	return uid
}
