package domain

import "time"

// PermissionStatus is the normalized calendar-access state. Stores without
// parental-control restrictions only ever report Granted or Denied.
type PermissionStatus string

const (
	PermissionGranted       PermissionStatus = "granted"
	PermissionDenied        PermissionStatus = "denied"
	PermissionRestricted    PermissionStatus = "restricted"
	PermissionNotDetermined PermissionStatus = "notDetermined"
)

// Frequency is the recurrence period of a rule.
type Frequency string

const (
	FreqDaily   Frequency = "DAILY"
	FreqWeekly  Frequency = "WEEKLY"
	FreqMonthly Frequency = "MONTHLY"
	FreqYearly  Frequency = "YEARLY"
)

// DayOfWeek numbers Sunday..Saturday as 0..6.
type DayOfWeek int

const (
	Sunday DayOfWeek = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// ByDay selects a weekday within the recurrence period. Ordinal 0 means
// "every", a signed ordinal selects the Nth occurrence (-1 = last).
type ByDay struct {
	Day     DayOfWeek
	Ordinal int
}

// RecurrenceRule is the normalized recurrence description shared by both
// store families. Count and Until are mutually exclusive; both zero-valued
// means the series repeats forever.
type RecurrenceRule struct {
	Frequency Frequency
	Interval  int // >= 1; 0 is normalized to 1
	Count     int // 0 = unset
	Until     *time.Time

	ByDays      []ByDay
	ByMonthDays []int
	ByMonths    []int
	ByYearDays  []int
	ByWeekNos   []int
	BySetPos    []int
}

// EndsNever reports whether the rule has no end condition.
func (r *RecurrenceRule) EndsNever() bool {
	return r.Count == 0 && r.Until == nil
}

// EventStatus mirrors the confirmed/tentative/canceled state of an event.
type EventStatus string

const (
	StatusNone      EventStatus = "none"
	StatusConfirmed EventStatus = "confirmed"
	StatusTentative EventStatus = "tentative"
	StatusCanceled  EventStatus = "canceled"
)

// Availability is how the event marks the owner's time.
type Availability string

const (
	AvailabilityBusy        Availability = "busy"
	AvailabilityFree        Availability = "free"
	AvailabilityTentative   Availability = "tentative"
	AvailabilityUnavailable Availability = "unavailable"
)

// AttendeeRole is the attendee's participation role.
type AttendeeRole string

const (
	RoleRequired       AttendeeRole = "required"
	RoleOptional       AttendeeRole = "optional"
	RoleChair          AttendeeRole = "chair"
	RoleNonParticipant AttendeeRole = "nonParticipant"
)

// AttendeeStatus is the attendee's response to the invitation.
type AttendeeStatus string

const (
	AttendeeUnknown   AttendeeStatus = "unknown"
	AttendeePending   AttendeeStatus = "pending"
	AttendeeAccepted  AttendeeStatus = "accepted"
	AttendeeDeclined  AttendeeStatus = "declined"
	AttendeeTentative AttendeeStatus = "tentative"
)

// Attendee is one invited participant. Email is stored as an opaque string;
// no RFC-5322 validation is applied.
type Attendee struct {
	Email         string
	Name          string
	Role          AttendeeRole
	Status        AttendeeStatus
	IsCurrentUser bool
}

// Reminder fires Minutes before the event start. Zero and negative values
// are accepted as-is; a negative lead time is deliberately not validated.
type Reminder struct {
	Minutes int
}

// Calendar is a normalized calendar from either store family.
type Calendar struct {
	ID          string
	Name        string
	Color       *int64 // 32-bit ARGB when set
	AccountName string
	AccountType string
	ReadOnly    bool
	IsDefault   bool
}

// Event is the normalized calendar event. An empty ID means the event has
// not been persisted yet; Update/Delete require a persisted ID.
// OriginalStart is set only on instances of a recurring series, never on
// the series master.
type Event struct {
	CalendarID  string
	ID          string
	Title       string
	Description string
	Location    string
	URL         string

	Start  *time.Time
	End    *time.Time
	AllDay bool

	Recurrence    *RecurrenceRule
	OriginalStart *time.Time

	Attendees []Attendee
	Reminders []Reminder

	Status       EventStatus
	Availability Availability
	Organizer    *Attendee
	Color        string
}

// Recurring reports whether the event carries a recurrence rule.
func (e *Event) Recurring() bool {
	return e.Recurrence != nil
}

// Valid reports whether the event satisfies the model invariants: a
// non-empty calendar identifier, both instants present, and start <= end.
func (e *Event) Valid() bool {
	if e.CalendarID == "" {
		return false
	}
	if e.Start == nil || e.End == nil {
		return false
	}
	return !e.Start.After(*e.End)
}
