// Package store declares the Repository Port: the abstract contract the
// use-case layer calls. Concrete adapters (one per native store family)
// satisfy it; the orchestration layer never branches on store identity.
package store

import (
	"context"
	"time"

	"calbridge/internal/domain"
)

// EventFilter narrows a RetrieveEvents call. Either a time window, an
// explicit id list, or both may be given; empty means everything.
type EventFilter struct {
	Start    *time.Time
	End      *time.Time
	EventIDs []string
}

// OccurrenceDeleter is the per-family seam for single-occurrence and
// this-and-future deletion of a recurring series. The master's rule must
// not change when following is false; deleting an occurrence that is
// already gone reports an event-not-found error.
type OccurrenceDeleter interface {
	DeleteOccurrence(ctx context.Context, calendarID, eventID string, occurrenceStart time.Time, following bool) error
}

// Store is the full native-boundary contract. Implementations are handed
// in as explicit dependencies, never reached through package state, so
// tests can substitute a fake. All mutating calls are terminal on first
// failure; there are no retries at this layer.
type Store interface {
	OccurrenceDeleter

	PermissionStatus(ctx context.Context) (domain.PermissionStatus, error)
	RequestPermission(ctx context.Context) (domain.PermissionStatus, error)

	Calendars(ctx context.Context) ([]domain.Calendar, error)
	CreateCalendar(ctx context.Context, cal domain.Calendar) (string, error)
	DeleteCalendar(ctx context.Context, calendarID string) error
	UpdateCalendarColor(ctx context.Context, calendarID, colorKey string) error

	Events(ctx context.Context, calendarID string, filter EventFilter) ([]domain.Event, error)
	Event(ctx context.Context, calendarID, eventID string) (*domain.Event, error)
	CreateEvent(ctx context.Context, ev domain.Event) (string, error)
	UpdateEvent(ctx context.Context, ev domain.Event) error
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
