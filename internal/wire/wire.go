// Package wire is the versioned schema for the structured argument maps
// crossing the transport boundary. Values are restricted to strings,
// 64-bit integers (epoch millis for all instants), booleans, and nested
// maps/lists of the same. Unknown or mistyped fields fail decoding with
// a typed invalid-argument error instead of a runtime cast failure.
package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"calbridge/internal/calerr"
	"calbridge/internal/domain"
	"calbridge/internal/recurrence"
)

// Field names shared by both directions of the boundary.
const (
	FieldCalendarID         = "calendarId"
	FieldEventID            = "eventId"
	FieldTitle              = "title"
	FieldDescription        = "description"
	FieldLocation           = "location"
	FieldURL                = "url"
	FieldStart              = "start"
	FieldEnd                = "end"
	FieldAllDay             = "allDay"
	FieldRecurrenceRule     = "recurrenceRule"
	FieldOriginalStart      = "originalStart"
	FieldAttendees          = "attendees"
	FieldReminders          = "reminders"
	FieldEventStatus        = "eventStatus"
	FieldAvailability       = "availability"
	FieldOrganizer          = "organizer"
	FieldEventColor         = "eventColor"
	FieldStartDate          = "startDate"
	FieldFollowingInstances = "followingInstances"

	fieldEmail         = "email"
	fieldName          = "name"
	fieldRole          = "role"
	fieldStatus        = "status"
	fieldIsCurrentUser = "isCurrentUser"
	fieldMinutes       = "minutes"
)

var eventFields = map[string]bool{
	FieldCalendarID: true, FieldEventID: true, FieldTitle: true,
	FieldDescription: true, FieldLocation: true, FieldURL: true,
	FieldStart: true, FieldEnd: true, FieldAllDay: true,
	FieldRecurrenceRule: true, FieldOriginalStart: true,
	FieldAttendees: true, FieldReminders: true, FieldEventStatus: true,
	FieldAvailability: true, FieldOrganizer: true, FieldEventColor: true,
}

// DecodeEvent builds a domain event from a boundary argument map. All
// instants arrive as epoch millis in UTC; loc is the caller-facing zone
// re-attached on the way in (nil means UTC).
func DecodeEvent(args map[string]any, loc *time.Location) (*domain.Event, error) {
	if loc == nil {
		loc = time.UTC
	}
	for k := range args {
		if !eventFields[k] {
			return nil, calerr.InvalidArgumentDetails("unknown event field", k)
		}
	}

	ev := &domain.Event{}
	var err error
	if ev.CalendarID, err = optString(args, FieldCalendarID); err != nil {
		return nil, err
	}
	if ev.ID, err = optString(args, FieldEventID); err != nil {
		return nil, err
	}
	if ev.Title, err = optString(args, FieldTitle); err != nil {
		return nil, err
	}
	if ev.Description, err = optString(args, FieldDescription); err != nil {
		return nil, err
	}
	if ev.Location, err = optString(args, FieldLocation); err != nil {
		return nil, err
	}
	if ev.URL, err = optString(args, FieldURL); err != nil {
		return nil, err
	}
	if ev.Color, err = optString(args, FieldEventColor); err != nil {
		return nil, err
	}
	if ev.Start, err = optInstant(args, FieldStart, loc); err != nil {
		return nil, err
	}
	if ev.End, err = optInstant(args, FieldEnd, loc); err != nil {
		return nil, err
	}
	if ev.OriginalStart, err = optInstant(args, FieldOriginalStart, loc); err != nil {
		return nil, err
	}
	if ev.AllDay, err = optBool(args, FieldAllDay); err != nil {
		return nil, err
	}

	if raw, ok := args[FieldRecurrenceRule]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, badType(FieldRecurrenceRule, "string")
		}
		rule, perr := recurrence.Parse(s)
		if perr != nil {
			return nil, calerr.InvalidArgumentDetails("invalid recurrence rule", perr.Error())
		}
		ev.Recurrence = rule
	}

	statusStr, err := optString(args, FieldEventStatus)
	if err != nil {
		return nil, err
	}
	if ev.Status, err = decodeStatus(statusStr); err != nil {
		return nil, err
	}
	availStr, err := optString(args, FieldAvailability)
	if err != nil {
		return nil, err
	}
	if ev.Availability, err = decodeAvailability(availStr); err != nil {
		return nil, err
	}

	if raw, ok := args[FieldAttendees]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, badType(FieldAttendees, "list")
		}
		for i, item := range list {
			a, aerr := decodeAttendee(item)
			if aerr != nil {
				return nil, calerr.InvalidArgumentDetails("invalid attendee", fmt.Sprintf("index %d: %v", i, aerr))
			}
			ev.Attendees = append(ev.Attendees, a)
		}
	}
	if raw, ok := args[FieldOrganizer]; ok {
		a, aerr := decodeAttendee(raw)
		if aerr != nil {
			return nil, calerr.InvalidArgumentDetails("invalid organizer", aerr.Error())
		}
		ev.Organizer = &a
	}
	if raw, ok := args[FieldReminders]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, badType(FieldReminders, "list")
		}
		for i, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, calerr.InvalidArgumentDetails("invalid reminder", fmt.Sprintf("index %d: not a map", i))
			}
			minutes, merr := asInt64(m[fieldMinutes])
			if merr != nil {
				return nil, calerr.InvalidArgumentDetails("invalid reminder", fmt.Sprintf("index %d: %v", i, merr))
			}
			// Negative lead times are carried through unvalidated.
			ev.Reminders = append(ev.Reminders, domain.Reminder{Minutes: int(minutes)})
		}
	}
	return ev, nil
}

// EncodeEvent renders a domain event back into a boundary argument map.
// Absent optional fields are omitted rather than sent as nulls.
func EncodeEvent(ev *domain.Event) map[string]any {
	out := map[string]any{
		FieldCalendarID: ev.CalendarID,
		FieldAllDay:     ev.AllDay,
	}
	if ev.ID != "" {
		out[FieldEventID] = ev.ID
	}
	putStr(out, FieldTitle, ev.Title)
	putStr(out, FieldDescription, ev.Description)
	putStr(out, FieldLocation, ev.Location)
	putStr(out, FieldURL, ev.URL)
	putStr(out, FieldEventColor, ev.Color)
	if ev.Start != nil {
		out[FieldStart] = ev.Start.UnixMilli()
	}
	if ev.End != nil {
		out[FieldEnd] = ev.End.UnixMilli()
	}
	if ev.OriginalStart != nil {
		out[FieldOriginalStart] = ev.OriginalStart.UnixMilli()
	}
	if ev.Recurrence != nil {
		out[FieldRecurrenceRule] = recurrence.Generate(ev.Recurrence)
	}
	if ev.Status != "" {
		out[FieldEventStatus] = string(ev.Status)
	}
	if ev.Availability != "" {
		out[FieldAvailability] = string(ev.Availability)
	}
	if len(ev.Attendees) > 0 {
		list := make([]any, 0, len(ev.Attendees))
		for _, a := range ev.Attendees {
			list = append(list, encodeAttendee(a))
		}
		out[FieldAttendees] = list
	}
	if ev.Organizer != nil {
		out[FieldOrganizer] = encodeAttendee(*ev.Organizer)
	}
	if len(ev.Reminders) > 0 {
		list := make([]any, 0, len(ev.Reminders))
		for _, r := range ev.Reminders {
			list = append(list, map[string]any{fieldMinutes: int64(r.Minutes)})
		}
		out[FieldReminders] = list
	}
	return out
}

// OccurrenceArgs are the arguments of a single-occurrence deletion.
type OccurrenceArgs struct {
	CalendarID         string
	EventID            string
	StartDate          time.Time
	FollowingInstances bool
}

// DecodeOccurrenceArgs validates the argument map of an occurrence
// deletion call.
func DecodeOccurrenceArgs(args map[string]any) (*OccurrenceArgs, error) {
	allowed := map[string]bool{
		FieldCalendarID: true, FieldEventID: true,
		FieldStartDate: true, FieldFollowingInstances: true,
	}
	for k := range args {
		if !allowed[k] {
			return nil, calerr.InvalidArgumentDetails("unknown field", k)
		}
	}
	out := &OccurrenceArgs{}
	var err error
	if out.CalendarID, err = optString(args, FieldCalendarID); err != nil {
		return nil, err
	}
	if out.EventID, err = optString(args, FieldEventID); err != nil {
		return nil, err
	}
	raw, ok := args[FieldStartDate]
	if !ok {
		return nil, calerr.InvalidArgumentDetails("missing field", FieldStartDate)
	}
	ms, err := asInt64(raw)
	if err != nil {
		return nil, badType(FieldStartDate, "epoch millis integer")
	}
	out.StartDate = time.UnixMilli(ms).UTC()
	if out.FollowingInstances, err = optBool(args, FieldFollowingInstances); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeAttendee(raw any) (domain.Attendee, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return domain.Attendee{}, fmt.Errorf("not a map")
	}
	allowed := map[string]bool{
		fieldEmail: true, fieldName: true, fieldRole: true,
		fieldStatus: true, fieldIsCurrentUser: true,
	}
	for k := range m {
		if !allowed[k] {
			return domain.Attendee{}, fmt.Errorf("unknown field %q", k)
		}
	}
	a := domain.Attendee{}
	var err error
	if a.Email, err = optString(m, fieldEmail); err != nil {
		return a, fmt.Errorf("email must be a string")
	}
	if a.Email == "" {
		return a, fmt.Errorf("email is required")
	}
	if a.Name, err = optString(m, fieldName); err != nil {
		return a, fmt.Errorf("name must be a string")
	}
	roleStr, err := optString(m, fieldRole)
	if err != nil {
		return a, fmt.Errorf("role must be a string")
	}
	if a.Role, err = decodeRole(roleStr); err != nil {
		return a, err
	}
	statusStr, err := optString(m, fieldStatus)
	if err != nil {
		return a, fmt.Errorf("status must be a string")
	}
	if a.Status, err = decodeAttendeeStatus(statusStr); err != nil {
		return a, err
	}
	if a.IsCurrentUser, err = optBool(m, fieldIsCurrentUser); err != nil {
		return a, fmt.Errorf("isCurrentUser must be a boolean")
	}
	return a, nil
}

func encodeAttendee(a domain.Attendee) map[string]any {
	m := map[string]any{
		fieldEmail:         a.Email,
		fieldRole:          string(a.Role),
		fieldStatus:        string(a.Status),
		fieldIsCurrentUser: a.IsCurrentUser,
	}
	if a.Name != "" {
		m[fieldName] = a.Name
	}
	return m
}

func decodeStatus(s string) (domain.EventStatus, error) {
	switch domain.EventStatus(s) {
	case "", domain.StatusNone, domain.StatusConfirmed, domain.StatusTentative, domain.StatusCanceled:
		return domain.EventStatus(s), nil
	}
	return "", calerr.InvalidArgumentDetails("unknown event status", s)
}

func decodeAvailability(s string) (domain.Availability, error) {
	switch domain.Availability(s) {
	case "", domain.AvailabilityBusy, domain.AvailabilityFree,
		domain.AvailabilityTentative, domain.AvailabilityUnavailable:
		return domain.Availability(s), nil
	}
	return "", calerr.InvalidArgumentDetails("unknown availability", s)
}

func decodeRole(s string) (domain.AttendeeRole, error) {
	switch domain.AttendeeRole(s) {
	case "", domain.RoleRequired, domain.RoleOptional, domain.RoleChair, domain.RoleNonParticipant:
		if s == "" {
			return domain.RoleRequired, nil
		}
		return domain.AttendeeRole(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func decodeAttendeeStatus(s string) (domain.AttendeeStatus, error) {
	switch domain.AttendeeStatus(s) {
	case "", domain.AttendeeUnknown, domain.AttendeePending,
		domain.AttendeeAccepted, domain.AttendeeDeclined, domain.AttendeeTentative:
		if s == "" {
			return domain.AttendeeUnknown, nil
		}
		return domain.AttendeeStatus(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func optString(args map[string]any, field string) (string, error) {
	raw, ok := args[field]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", badType(field, "string")
	}
	return s, nil
}

func optBool(args map[string]any, field string) (bool, error) {
	raw, ok := args[field]
	if !ok || raw == nil {
		return false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, badType(field, "boolean")
	}
	return b, nil
}

func optInstant(args map[string]any, field string, loc *time.Location) (*time.Time, error) {
	raw, ok := args[field]
	if !ok || raw == nil {
		return nil, nil
	}
	ms, err := asInt64(raw)
	if err != nil {
		return nil, badType(field, "epoch millis integer")
	}
	t := time.UnixMilli(ms).In(loc)
	return &t, nil
}

// asInt64 accepts the integer shapes a transport may hand us: native
// ints, and JSON numbers that are whole.
func asInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("not a whole number")
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	default:
		return 0, fmt.Errorf("not an integer")
	}
}

func putStr(out map[string]any, field, value string) {
	if value != "" {
		out[field] = value
	}
}

func badType(field, want string) error {
	return calerr.InvalidArgumentDetails("field has wrong type", field+" must be a "+want)
}
