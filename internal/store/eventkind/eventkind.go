// Package eventkind implements the Repository Port against a unified
// event-store style framework: object identifiers, typed status and
// availability enumerations, and span-based removal of single instances.
// The store is in-memory; a device-backed implementation would satisfy
// the same contract.
package eventkind

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"calbridge/internal/domain"
	"calbridge/internal/recurrence"
	"calbridge/internal/store"
)

// Typed enumerations of the event-store framework.
type objectStatus int

const (
	statusNone objectStatus = iota
	statusConfirmed
	statusTentative
	statusCanceled
)

type objectAvailability int

const (
	availabilityNotSet objectAvailability = iota - 1
	availabilityBusy
	availabilityFree
	availabilityTentative
	availabilityUnavailable
)

type participantRole int

const (
	roleUnknown participantRole = iota
	roleRequired
	roleOptional
	roleChair
	roleNonParticipant
)

type participantStatus int

const (
	participantUnknown participantStatus = iota
	participantPending
	participantAccepted
	participantDeclined
	participantTentative
)

type participant struct {
	email         string
	name          string
	role          participantRole
	status        participantStatus
	isCurrentUser bool
}

type eventObject struct {
	id       string
	title    string
	notes    string
	location string
	url      string

	start  *time.Time
	end    *time.Time
	allDay bool

	// recurrence carries the framework's own primitive: weekday and
	// ordinal in separate fields, typed frequency.
	recurrence *recurrence.EventKindRule

	// removedInstances holds the start instants (epoch millis) of
	// occurrences removed individually; the rule itself is untouched.
	removedInstances map[int64]bool

	attendees []participant
	reminders []int
	status    objectStatus
	avail     objectAvailability
	organizer *participant
	colorKey  string
}

type calendarObject struct {
	id                  string
	title               string
	color               *int64
	source              string
	sourceType          string
	allowsModifications bool
	isDefault           bool

	events map[string]*eventObject
}

// Store is the event-store-family adapter. It supports the full
// four-state permission model including parental-control restriction.
type Store struct {
	mu         sync.RWMutex
	permission domain.PermissionStatus
	restricted bool
	calendars  map[string]*calendarObject
}

// Option adjusts a Store at construction time.
type Option func(*Store)

// Restricted marks the store as under parental-control restriction:
// permission requests resolve to restricted instead of granted.
func Restricted() Option {
	return func(s *Store) { s.restricted = true }
}

// New creates an empty event store. Permission starts notDetermined and
// resolves on the first RequestPermission call.
func New(opts ...Option) *Store {
	s := &Store{
		permission: domain.PermissionNotDetermined,
		calendars:  map[string]*calendarObject{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) PermissionStatus(_ context.Context) (domain.PermissionStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permission, nil
}

func (s *Store) RequestPermission(_ context.Context) (domain.PermissionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permission == domain.PermissionNotDetermined {
		if s.restricted {
			s.permission = domain.PermissionRestricted
		} else {
			s.permission = domain.PermissionGranted
		}
	}
	return s.permission, nil
}

func (s *Store) Calendars(_ context.Context) ([]domain.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Calendar, 0, len(s.calendars))
	for _, c := range s.calendars {
		out = append(out, domain.Calendar{
			ID:          c.id,
			Name:        c.title,
			Color:       c.color,
			AccountName: c.source,
			AccountType: c.sourceType,
			ReadOnly:    !c.allowsModifications,
			IsDefault:   c.isDefault,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateCalendar(_ context.Context, cal domain.Calendar) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &calendarObject{
		id:                  uuid.NewString(),
		title:               cal.Name,
		source:              cal.AccountName,
		sourceType:          cal.AccountType,
		allowsModifications: !cal.ReadOnly,
		isDefault:           cal.IsDefault,
		events:              map[string]*eventObject{},
	}
	if cal.Color != nil {
		c2 := *cal.Color
		c.color = &c2
	}
	s.calendars[c.id] = c
	return c.id, nil
}

func (s *Store) DeleteCalendar(_ context.Context, calendarID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calendars[calendarID]; !ok {
		return calendarNotFound(calendarID)
	}
	delete(s.calendars, calendarID)
	return nil
}

func (s *Store) UpdateCalendarColor(_ context.Context, calendarID, colorKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calendars[calendarID]
	if !ok {
		return calendarNotFound(calendarID)
	}
	argb, ok := colorKeys[colorKey]
	if !ok {
		return &store.NativeError{Code: "INVALID_ARGUMENT", Message: "unknown calendar color key", Details: colorKey}
	}
	c.color = &argb
	return nil
}

// colorKeys mirrors the framework's calendar color constants.
var colorKeys = map[string]int64{
	"red":    0xFFFF3B30,
	"orange": 0xFFFF9500,
	"yellow": 0xFFFFCC00,
	"green":  0xFF34C759,
	"blue":   0xFF007AFF,
	"purple": 0xFFAF52DE,
	"brown":  0xFFA2845E,
	"grey":   0xFF8E8E93,
}

func (s *Store) Events(_ context.Context, calendarID string, filter store.EventFilter) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.calendars[calendarID]
	if !ok {
		return nil, calendarNotFound(calendarID)
	}

	ids := make([]string, 0, len(c.events))
	for id := range c.events {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []domain.Event
	for _, id := range ids {
		obj := c.events[id]
		if len(filter.EventIDs) > 0 && !contains(filter.EventIDs, id) {
			continue
		}
		ev := s.toDomain(calendarID, obj)
		if filter.Start == nil || filter.End == nil {
			out = append(out, *ev)
			continue
		}
		instances, err := expandInstances(obj, ev, *filter.Start, *filter.End)
		if err != nil {
			return nil, err
		}
		out = append(out, instances...)
	}
	return out, nil
}

func (s *Store) Event(_ context.Context, calendarID, eventID string) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, err := s.object(calendarID, eventID)
	if err != nil {
		return nil, err
	}
	return s.toDomain(calendarID, obj), nil
}

func (s *Store) CreateEvent(_ context.Context, ev domain.Event) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.calendars[ev.CalendarID]
	if !ok {
		return "", calendarNotFound(ev.CalendarID)
	}
	obj := fromDomain(ev)
	obj.id = uuid.NewString()
	c.events[obj.id] = obj
	return obj.id, nil
}

func (s *Store) UpdateEvent(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.calendars[ev.CalendarID]
	if !ok {
		return calendarNotFound(ev.CalendarID)
	}
	old, ok := c.events[ev.ID]
	if !ok {
		return eventNotFound(ev.ID)
	}
	obj := fromDomain(ev)
	obj.id = ev.ID
	// Instance removals survive an update of the master's fields.
	obj.removedInstances = old.removedInstances
	c.events[ev.ID] = obj
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, calendarID, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.calendars[calendarID]
	if !ok {
		return calendarNotFound(calendarID)
	}
	if _, ok := c.events[eventID]; !ok {
		return eventNotFound(eventID)
	}
	delete(c.events, eventID)
	return nil
}

// DeleteOccurrence removes a single span from a recurring series
// (following=false) or truncates the series at the cutoff
// (following=true). The rule is never mutated for a single-span removal.
func (s *Store) DeleteOccurrence(_ context.Context, calendarID, eventID string, occurrenceStart time.Time, following bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, err := s.object(calendarID, eventID)
	if err != nil {
		return err
	}
	if obj.recurrence == nil {
		c := s.calendars[calendarID]
		delete(c.events, eventID)
		return nil
	}
	if obj.start == nil {
		return eventNotFound(eventID)
	}

	rule := recurrence.FromEventKind(*obj.recurrence)
	expander, err := recurrence.Expander(rule, *obj.start)
	if err != nil {
		return storeErr("evaluate recurrence", err)
	}

	occ := occurrenceStart.In(obj.start.Location())
	millis := occ.UnixMilli()
	if obj.removedInstances[millis] {
		return eventNotFound(eventID)
	}
	if !isOccurrence(expander.Between(occ.Add(-time.Millisecond), occ.Add(time.Millisecond), true), occ) {
		return eventNotFound(eventID)
	}

	if !following {
		if obj.removedInstances == nil {
			obj.removedInstances = map[int64]bool{}
		}
		obj.removedInstances[millis] = true
		return nil
	}

	// Span semantics: the series ends at the occurrence preceding the
	// cutoff; removals past the cutoff are moot.
	prev := expander.Before(occ, false)
	if prev.IsZero() {
		c := s.calendars[calendarID]
		delete(c.events, eventID)
		return nil
	}
	truncated := *obj.recurrence
	truncated.OccurrenceCount = 0
	end := prev
	truncated.EndDate = &end
	obj.recurrence = &truncated
	for ms := range obj.removedInstances {
		if ms >= millis {
			delete(obj.removedInstances, ms)
		}
	}
	return nil
}

func (s *Store) object(calendarID, eventID string) (*eventObject, error) {
	c, ok := s.calendars[calendarID]
	if !ok {
		return nil, calendarNotFound(calendarID)
	}
	obj, ok := c.events[eventID]
	if !ok {
		return nil, eventNotFound(eventID)
	}
	return obj, nil
}

func expandInstances(obj *eventObject, master *domain.Event, start, end time.Time) ([]domain.Event, error) {
	if obj.recurrence == nil {
		if master.Start == nil || master.End == nil {
			return nil, nil
		}
		if master.End.Before(start) || master.Start.After(end) {
			return nil, nil
		}
		return []domain.Event{*master}, nil
	}
	if master.Start == nil {
		return nil, nil
	}

	expander, err := recurrence.Expander(master.Recurrence, *master.Start)
	if err != nil {
		return nil, storeErr("evaluate recurrence", err)
	}
	duration := time.Duration(0)
	if master.End != nil {
		duration = master.End.Sub(*master.Start)
	}

	var out []domain.Event
	for _, occStart := range expander.Between(start, end, true) {
		if obj.removedInstances[occStart.UnixMilli()] {
			continue
		}
		inst := *master
		os := occStart
		oe := occStart.Add(duration)
		inst.Start = &os
		inst.End = &oe
		orig := occStart
		inst.OriginalStart = &orig
		out = append(out, inst)
	}
	return out, nil
}

func (s *Store) toDomain(calendarID string, obj *eventObject) *domain.Event {
	ev := &domain.Event{
		CalendarID:   calendarID,
		ID:           obj.id,
		Title:        obj.title,
		Description:  obj.notes,
		Location:     obj.location,
		URL:          obj.url,
		AllDay:       obj.allDay,
		Status:       statusToDomain(obj.status),
		Availability: availabilityToDomain(obj.avail),
		Color:        obj.colorKey,
	}
	if obj.start != nil {
		t := *obj.start
		ev.Start = &t
	}
	if obj.end != nil {
		t := *obj.end
		ev.End = &t
	}
	if obj.recurrence != nil {
		ev.Recurrence = recurrence.FromEventKind(*obj.recurrence)
	}
	for _, p := range obj.attendees {
		ev.Attendees = append(ev.Attendees, attendeeToDomain(p))
	}
	for _, m := range obj.reminders {
		ev.Reminders = append(ev.Reminders, domain.Reminder{Minutes: m})
	}
	if obj.organizer != nil {
		a := attendeeToDomain(*obj.organizer)
		ev.Organizer = &a
	}
	return ev
}

func fromDomain(ev domain.Event) *eventObject {
	obj := &eventObject{
		title:    ev.Title,
		notes:    ev.Description,
		location: ev.Location,
		url:      ev.URL,
		allDay:   ev.AllDay,
		status:   statusFromDomain(ev.Status),
		avail:    availabilityFromDomain(ev.Availability),
		colorKey: ev.Color,
	}
	if ev.Start != nil {
		t := *ev.Start
		obj.start = &t
	}
	if ev.End != nil {
		t := *ev.End
		obj.end = &t
	}
	if ev.Recurrence != nil {
		rule := recurrence.ToEventKind(ev.Recurrence)
		obj.recurrence = &rule
	}
	for _, a := range ev.Attendees {
		obj.attendees = append(obj.attendees, attendeeFromDomain(a))
	}
	for _, r := range ev.Reminders {
		obj.reminders = append(obj.reminders, r.Minutes)
	}
	if ev.Organizer != nil {
		p := attendeeFromDomain(*ev.Organizer)
		obj.organizer = &p
	}
	return obj
}

func attendeeToDomain(p participant) domain.Attendee {
	return domain.Attendee{
		Email:         p.email,
		Name:          p.name,
		Role:          roleToDomain(p.role),
		Status:        participantStatusToDomain(p.status),
		IsCurrentUser: p.isCurrentUser,
	}
}

func attendeeFromDomain(a domain.Attendee) participant {
	return participant{
		email:         a.Email,
		name:          a.Name,
		role:          roleFromDomain(a.Role),
		status:        participantStatusFromDomain(a.Status),
		isCurrentUser: a.IsCurrentUser,
	}
}

func statusToDomain(s objectStatus) domain.EventStatus {
	switch s {
	case statusConfirmed:
		return domain.StatusConfirmed
	case statusTentative:
		return domain.StatusTentative
	case statusCanceled:
		return domain.StatusCanceled
	default:
		return domain.StatusNone
	}
}

func statusFromDomain(s domain.EventStatus) objectStatus {
	switch s {
	case domain.StatusConfirmed:
		return statusConfirmed
	case domain.StatusTentative:
		return statusTentative
	case domain.StatusCanceled:
		return statusCanceled
	default:
		return statusNone
	}
}

func availabilityToDomain(a objectAvailability) domain.Availability {
	switch a {
	case availabilityBusy:
		return domain.AvailabilityBusy
	case availabilityFree:
		return domain.AvailabilityFree
	case availabilityTentative:
		return domain.AvailabilityTentative
	case availabilityUnavailable:
		return domain.AvailabilityUnavailable
	default:
		return ""
	}
}

func availabilityFromDomain(a domain.Availability) objectAvailability {
	switch a {
	case domain.AvailabilityBusy:
		return availabilityBusy
	case domain.AvailabilityFree:
		return availabilityFree
	case domain.AvailabilityTentative:
		return availabilityTentative
	case domain.AvailabilityUnavailable:
		return availabilityUnavailable
	default:
		return availabilityNotSet
	}
}

func roleToDomain(r participantRole) domain.AttendeeRole {
	switch r {
	case roleOptional:
		return domain.RoleOptional
	case roleChair:
		return domain.RoleChair
	case roleNonParticipant:
		return domain.RoleNonParticipant
	default:
		return domain.RoleRequired
	}
}

func roleFromDomain(r domain.AttendeeRole) participantRole {
	switch r {
	case domain.RoleOptional:
		return roleOptional
	case domain.RoleChair:
		return roleChair
	case domain.RoleNonParticipant:
		return roleNonParticipant
	default:
		return roleRequired
	}
}

func participantStatusToDomain(s participantStatus) domain.AttendeeStatus {
	switch s {
	case participantPending:
		return domain.AttendeePending
	case participantAccepted:
		return domain.AttendeeAccepted
	case participantDeclined:
		return domain.AttendeeDeclined
	case participantTentative:
		return domain.AttendeeTentative
	default:
		return domain.AttendeeUnknown
	}
}

func participantStatusFromDomain(s domain.AttendeeStatus) participantStatus {
	switch s {
	case domain.AttendeePending:
		return participantPending
	case domain.AttendeeAccepted:
		return participantAccepted
	case domain.AttendeeDeclined:
		return participantDeclined
	case domain.AttendeeTentative:
		return participantTentative
	default:
		return participantUnknown
	}
}

func isOccurrence(hits []time.Time, occ time.Time) bool {
	for _, t := range hits {
		if t.Equal(occ) {
			return true
		}
	}
	return false
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func calendarNotFound(id string) error {
	return &store.NativeError{Code: "CALENDAR_NOT_FOUND", Message: "calendar not found", Details: id}
}

func eventNotFound(id string) error {
	return &store.NativeError{Code: "EVENT_NOT_FOUND", Message: "event not found", Details: id}
}

func storeErr(op string, err error) error {
	return &store.NativeError{Code: "EVENT_STORE_ERROR", Message: op + " failed", Details: err.Error()}
}
