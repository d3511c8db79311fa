// Package usecase is the validation / orchestration layer in front of the
// Repository Port. It fails fast on invalid arguments before any native
// call, checks the permission state, and guarantees that every error
// leaving this layer is a taxonomy error.
package usecase

import (
	"context"
	"errors"
	"time"

	"calbridge/internal/calerr"
	"calbridge/internal/domain"
	appLog "calbridge/internal/log"
	"calbridge/internal/store"
)

// Service wraps one injected Store. It holds no state of its own, so
// concurrent calls share nothing at this layer and race only at the
// native store, which serializes them itself.
type Service struct {
	st store.Store
}

func New(st store.Store) *Service {
	return &Service{st: st}
}

// mapErr is the single choke point for native failures: NativeError codes
// run through the total taxonomy mapping, taxonomy errors pass through,
// anything else becomes a platform error.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var ne *store.NativeError
	if errors.As(err, &ne) {
		return calerr.FromNative(ne.Code, ne.Message, ne.Details)
	}
	return calerr.Wrap(err, "native store call failed")
}

func (s *Service) requirePermission(ctx context.Context) error {
	status, err := s.st.PermissionStatus(ctx)
	if err != nil {
		return mapErr(err)
	}
	if status != domain.PermissionGranted {
		return calerr.PermissionDenied()
	}
	return nil
}

func (s *Service) PermissionStatus(ctx context.Context) (domain.PermissionStatus, error) {
	status, err := s.st.PermissionStatus(ctx)
	return status, mapErr(err)
}

func (s *Service) RequestPermission(ctx context.Context) (domain.PermissionStatus, error) {
	status, err := s.st.RequestPermission(ctx)
	return status, mapErr(err)
}

func (s *Service) RetrieveCalendars(ctx context.Context) ([]domain.Calendar, error) {
	if err := s.requirePermission(ctx); err != nil {
		return nil, err
	}
	cals, err := s.st.Calendars(ctx)
	return cals, mapErr(err)
}

// DefaultCalendar resolves the calendar new events land on: a writable
// calendar flagged as default, else the first writable calendar, else a
// calendar-not-found failure.
func (s *Service) DefaultCalendar(ctx context.Context) (*domain.Calendar, error) {
	cals, err := s.RetrieveCalendars(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cals {
		if cals[i].IsDefault && !cals[i].ReadOnly {
			return &cals[i], nil
		}
	}
	for i := range cals {
		if !cals[i].ReadOnly {
			return &cals[i], nil
		}
	}
	return nil, &calerr.Error{Kind: calerr.KindCalendarNotFound, Message: "no writable calendar found"}
}

func (s *Service) CreateCalendar(ctx context.Context, cal domain.Calendar) (string, error) {
	if cal.Name == "" {
		return "", calerr.InvalidArgument("calendar name must not be blank")
	}
	if err := s.requirePermission(ctx); err != nil {
		return "", err
	}
	id, err := s.st.CreateCalendar(ctx, cal)
	return id, mapErr(err)
}

func (s *Service) DeleteCalendar(ctx context.Context, calendarID string) error {
	if calendarID == "" {
		return calerr.InvalidArgument("calendar identifier must not be blank")
	}
	if err := s.requirePermission(ctx); err != nil {
		return err
	}
	return mapErr(s.st.DeleteCalendar(ctx, calendarID))
}

func (s *Service) UpdateCalendarColor(ctx context.Context, calendarID, colorKey string) error {
	if calendarID == "" {
		return calerr.InvalidArgument("calendar identifier must not be blank")
	}
	if colorKey == "" {
		return calerr.InvalidArgument("color key must not be blank")
	}
	if err := s.requirePermission(ctx); err != nil {
		return err
	}
	return mapErr(s.st.UpdateCalendarColor(ctx, calendarID, colorKey))
}

func (s *Service) RetrieveEvents(ctx context.Context, calendarID string, filter store.EventFilter) ([]domain.Event, error) {
	if calendarID == "" {
		return nil, calerr.InvalidArgument("calendar identifier must not be blank")
	}
	if err := s.requirePermission(ctx); err != nil {
		return nil, err
	}
	evs, err := s.st.Events(ctx, calendarID, filter)
	return evs, mapErr(err)
}

func (s *Service) RetrieveEvent(ctx context.Context, calendarID, eventID string) (*domain.Event, error) {
	if calendarID == "" {
		return nil, calerr.InvalidArgument("calendar identifier must not be blank")
	}
	if eventID == "" {
		return nil, calerr.InvalidArgument("event identifier must not be blank")
	}
	if err := s.requirePermission(ctx); err != nil {
		return nil, err
	}
	ev, err := s.st.Event(ctx, calendarID, eventID)
	return ev, mapErr(err)
}

func (s *Service) CreateEvent(ctx context.Context, ev domain.Event) (string, error) {
	if ev.ID != "" {
		return "", calerr.InvalidArgument("event identifier must be empty on create")
	}
	if err := validateEvent(&ev); err != nil {
		return "", err
	}
	if err := s.requirePermission(ctx); err != nil {
		return "", err
	}
	id, err := s.st.CreateEvent(ctx, ev)
	return id, mapErr(err)
}

func (s *Service) UpdateEvent(ctx context.Context, ev domain.Event) error {
	if ev.ID == "" {
		return calerr.InvalidArgument("event identifier must not be blank on update")
	}
	if err := validateEvent(&ev); err != nil {
		return err
	}
	if err := s.requirePermission(ctx); err != nil {
		return err
	}
	return mapErr(s.st.UpdateEvent(ctx, ev))
}

func (s *Service) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if calendarID == "" {
		return calerr.InvalidArgument("calendar identifier must not be blank")
	}
	if eventID == "" {
		return calerr.InvalidArgument("event identifier must not be blank on delete")
	}
	if err := s.requirePermission(ctx); err != nil {
		return err
	}
	return mapErr(s.st.DeleteEvent(ctx, calendarID, eventID))
}

// DeleteOccurrence removes one occurrence of an event, or the occurrence
// and everything after it when deleteFollowing is set.
//
// Per call the flow is: fetch the event (event-not-found terminates), a
// non-recurring event gets a plain full delete, a recurring one is
// dispatched to the store family's own mechanism (exception insertion,
// span removal, or series truncation). True is returned only once the
// store confirmed the mutation.
func (s *Service) DeleteOccurrence(ctx context.Context, calendarID, eventID string, occurrenceStart time.Time, deleteFollowing bool) (bool, error) {
	if calendarID == "" {
		return false, calerr.InvalidArgument("calendar identifier must not be blank")
	}
	if eventID == "" {
		return false, calerr.InvalidArgument("event identifier must not be blank on delete")
	}
	if occurrenceStart.IsZero() {
		return false, calerr.InvalidArgument("occurrence start must be set")
	}
	if err := s.requirePermission(ctx); err != nil {
		return false, err
	}

	ev, err := s.st.Event(ctx, calendarID, eventID)
	if err != nil {
		return false, mapErr(err)
	}

	if !ev.Recurring() {
		// No occurrence distinction exists for non-recurring events.
		if err := s.st.DeleteEvent(ctx, calendarID, eventID); err != nil {
			return false, mapErr(err)
		}
		return true, nil
	}

	if err := s.st.DeleteOccurrence(ctx, calendarID, eventID, occurrenceStart, deleteFollowing); err != nil {
		return false, mapErr(err)
	}
	appLog.Debug("occurrence deleted",
		"calendar_id", calendarID,
		"event_id", eventID,
		"occurrence", occurrenceStart.Format(time.RFC3339),
		"following", deleteFollowing,
	)
	return true, nil
}

// validateEvent enforces the local invariants shared by create and
// update. These checks never reach the native boundary.
func validateEvent(ev *domain.Event) error {
	if ev.CalendarID == "" {
		return calerr.InvalidArgument("calendar identifier must not be blank")
	}
	if ev.Title == "" {
		return calerr.InvalidArgument("event title must not be blank")
	}
	if ev.Start == nil || ev.End == nil {
		return calerr.InvalidArgument("event start and end must both be set")
	}
	if ev.Start.After(*ev.End) {
		return calerr.InvalidArgument("event start must not be after event end")
	}
	return nil
}
