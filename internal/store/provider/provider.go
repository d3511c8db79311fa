// Package provider implements the Repository Port against a
// content-provider style row store: integer row identifiers, enumerated
// integer column constants, and exception-instance rows that reference
// the series master through an original-event link.
package provider

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/teambition/rrule-go"

	"calbridge/internal/domain"
	appLog "calbridge/internal/log"
	"calbridge/internal/recurrence"
	"calbridge/internal/store"
)

// Enumerated column constants, content-provider style.
const (
	statusTentative = 0
	statusConfirmed = 1
	statusCanceled  = 2

	availabilityBusy        = 0
	availabilityFree        = 1
	availabilityTentative   = 2
	availabilityUnavailable = 3

	relationshipRequired       = 1
	relationshipOptional       = 2
	relationshipChair          = 3
	relationshipNonParticipant = 4

	attendeeStatusNone      = 0
	attendeeStatusAccepted  = 1
	attendeeStatusDeclined  = 2
	attendeeStatusInvited   = 3
	attendeeStatusTentative = 4
)

// calendarColorKeys is the provider's fixed color palette; calendar color
// updates address entries by key.
var calendarColorKeys = map[string]int64{
	"red":    0xFFD50000,
	"orange": 0xFFF4511E,
	"yellow": 0xFFF6BF26,
	"green":  0xFF0B8043,
	"blue":   0xFF3F51B5,
	"purple": 0xFF8E24AA,
	"brown":  0xFF795548,
	"grey":   0xFF616161,
}

const schema = `
CREATE TABLE IF NOT EXISTS calendars (
	_id           INTEGER PRIMARY KEY AUTOINCREMENT,
	display_name  TEXT NOT NULL,
	color         INTEGER,
	account_name  TEXT,
	account_type  TEXT,
	read_only     INTEGER NOT NULL DEFAULT 0,
	is_primary    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS events (
	_id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	calendar_id            INTEGER NOT NULL REFERENCES calendars(_id) ON DELETE CASCADE,
	title                  TEXT,
	description            TEXT,
	event_location         TEXT,
	custom_app_uri         TEXT,
	dtstart                INTEGER,
	dtend                  INTEGER,
	event_timezone         TEXT,
	all_day                INTEGER NOT NULL DEFAULT 0,
	rrule                  TEXT,
	original_id            INTEGER REFERENCES events(_id) ON DELETE CASCADE,
	original_instance_time INTEGER,
	event_status           INTEGER,
	availability           INTEGER,
	event_color            TEXT,
	organizer_email        TEXT,
	organizer_name         TEXT
);
CREATE TABLE IF NOT EXISTS attendees (
	_id          INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id     INTEGER NOT NULL REFERENCES events(_id) ON DELETE CASCADE,
	email        TEXT NOT NULL,
	name         TEXT,
	relationship INTEGER NOT NULL DEFAULT 1,
	status       INTEGER NOT NULL DEFAULT 0,
	is_current_user INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS reminders (
	_id      INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id INTEGER NOT NULL REFERENCES events(_id) ON DELETE CASCADE,
	minutes  INTEGER NOT NULL
);
`

// Store is the provider-family adapter. The database handle is injected
// at construction; nothing here is process-global.
type Store struct {
	db      *sqlx.DB
	granted bool
}

// Open connects to (or creates) the row store at path and ensures the
// schema exists. Use ":memory:" for an ephemeral store.
func Open(path string, granted bool) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("provider: connect %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("provider: create schema: %w", err)
	}
	return &Store{db: db, granted: granted}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// PermissionStatus reports the collapsed two-state permission of this
// store family; there is no restricted/notDetermined concept here.
func (s *Store) PermissionStatus(_ context.Context) (domain.PermissionStatus, error) {
	if s.granted {
		return domain.PermissionGranted, nil
	}
	return domain.PermissionDenied, nil
}

func (s *Store) RequestPermission(ctx context.Context) (domain.PermissionStatus, error) {
	return s.PermissionStatus(ctx)
}

type calendarRow struct {
	ID          int64          `db:"_id"`
	DisplayName string         `db:"display_name"`
	Color       sql.NullInt64  `db:"color"`
	AccountName sql.NullString `db:"account_name"`
	AccountType sql.NullString `db:"account_type"`
	ReadOnly    bool           `db:"read_only"`
	IsPrimary   bool           `db:"is_primary"`
}

type eventRow struct {
	ID                   int64          `db:"_id"`
	CalendarID           int64          `db:"calendar_id"`
	Title                sql.NullString `db:"title"`
	Description          sql.NullString `db:"description"`
	Location             sql.NullString `db:"event_location"`
	URL                  sql.NullString `db:"custom_app_uri"`
	DtStart              sql.NullInt64  `db:"dtstart"`
	DtEnd                sql.NullInt64  `db:"dtend"`
	Timezone             sql.NullString `db:"event_timezone"`
	AllDay               bool           `db:"all_day"`
	RRule                sql.NullString `db:"rrule"`
	OriginalID           sql.NullInt64  `db:"original_id"`
	OriginalInstanceTime sql.NullInt64  `db:"original_instance_time"`
	EventStatus          sql.NullInt64  `db:"event_status"`
	Availability         sql.NullInt64  `db:"availability"`
	EventColor           sql.NullString `db:"event_color"`
	OrganizerEmail       sql.NullString `db:"organizer_email"`
	OrganizerName        sql.NullString `db:"organizer_name"`
}

type attendeeRow struct {
	EventID       int64          `db:"event_id"`
	Email         string         `db:"email"`
	Name          sql.NullString `db:"name"`
	Relationship  int64          `db:"relationship"`
	Status        int64          `db:"status"`
	IsCurrentUser bool           `db:"is_current_user"`
}

type reminderRow struct {
	EventID int64 `db:"event_id"`
	Minutes int   `db:"minutes"`
}

func (s *Store) Calendars(ctx context.Context) ([]domain.Calendar, error) {
	var rows []calendarRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT _id, display_name, color, account_name, account_type, read_only, is_primary
		 FROM calendars ORDER BY _id ASC`)
	if err != nil {
		return nil, nativeErr("query calendars", err)
	}
	out := make([]domain.Calendar, 0, len(rows))
	for _, r := range rows {
		out = append(out, calendarFromRow(r))
	}
	return out, nil
}

func calendarFromRow(r calendarRow) domain.Calendar {
	cal := domain.Calendar{
		ID:          strconv.FormatInt(r.ID, 10),
		Name:        r.DisplayName,
		AccountName: r.AccountName.String,
		AccountType: r.AccountType.String,
		ReadOnly:    r.ReadOnly,
		IsDefault:   r.IsPrimary,
	}
	if r.Color.Valid {
		c := r.Color.Int64
		cal.Color = &c
	}
	return cal
}

func (s *Store) CreateCalendar(ctx context.Context, cal domain.Calendar) (string, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO calendars (display_name, color, account_name, account_type, read_only, is_primary)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cal.Name, nullInt64(cal.Color), nullStr(cal.AccountName), nullStr(cal.AccountType),
		cal.ReadOnly, cal.IsDefault)
	if err != nil {
		return "", nativeErr("insert calendar", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", nativeErr("insert calendar", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *Store) DeleteCalendar(ctx context.Context, calendarID string) error {
	id, err := rowID(calendarID)
	if err != nil {
		return calendarNotFound(calendarID)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM calendars WHERE _id = ?`, id)
	if err != nil {
		return nativeErr("delete calendar", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return calendarNotFound(calendarID)
	}
	return nil
}

func (s *Store) UpdateCalendarColor(ctx context.Context, calendarID, colorKey string) error {
	argb, ok := calendarColorKeys[colorKey]
	if !ok {
		return &store.NativeError{
			Code:    "INVALID_ARGUMENT",
			Message: "unknown calendar color key",
			Details: colorKey,
		}
	}
	id, err := rowID(calendarID)
	if err != nil {
		return calendarNotFound(calendarID)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE calendars SET color = ? WHERE _id = ?`, argb, id)
	if err != nil {
		return nativeErr("update calendar color", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return calendarNotFound(calendarID)
	}
	return nil
}

// Events returns events of the calendar. With a time window the recurring
// masters are expanded into concrete instances (exception rows excluded);
// without one the stored masters are returned as-is.
func (s *Store) Events(ctx context.Context, calendarID string, filter store.EventFilter) ([]domain.Event, error) {
	calID, err := rowID(calendarID)
	if err != nil {
		return nil, calendarNotFound(calendarID)
	}
	if err := s.requireCalendar(ctx, calID, calendarID); err != nil {
		return nil, err
	}

	var rows []eventRow
	err = s.db.SelectContext(ctx, &rows,
		`SELECT * FROM events WHERE calendar_id = ? AND original_id IS NULL ORDER BY _id ASC`, calID)
	if err != nil {
		return nil, nativeErr("query events", err)
	}

	var out []domain.Event
	for _, r := range rows {
		if len(filter.EventIDs) > 0 && !containsID(filter.EventIDs, r.ID) {
			continue
		}
		ev, err := s.eventFromRow(ctx, r)
		if err != nil {
			return nil, err
		}
		if filter.Start == nil || filter.End == nil {
			out = append(out, *ev)
			continue
		}
		instances, err := s.expandInstances(ctx, r, ev, *filter.Start, *filter.End)
		if err != nil {
			return nil, err
		}
		out = append(out, instances...)
	}
	return out, nil
}

func (s *Store) Event(ctx context.Context, calendarID, eventID string) (*domain.Event, error) {
	calID, err := rowID(calendarID)
	if err != nil {
		return nil, calendarNotFound(calendarID)
	}
	evID, err := rowID(eventID)
	if err != nil {
		return nil, eventNotFound(eventID)
	}
	var r eventRow
	err = s.db.GetContext(ctx, &r,
		`SELECT * FROM events WHERE _id = ? AND calendar_id = ? AND original_id IS NULL`, evID, calID)
	if err == sql.ErrNoRows {
		return nil, eventNotFound(eventID)
	}
	if err != nil {
		return nil, nativeErr("query event", err)
	}
	return s.eventFromRow(ctx, r)
}

func (s *Store) CreateEvent(ctx context.Context, ev domain.Event) (string, error) {
	calID, err := rowID(ev.CalendarID)
	if err != nil {
		return "", calendarNotFound(ev.CalendarID)
	}
	if err := s.requireCalendar(ctx, calID, ev.CalendarID); err != nil {
		return "", err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", nativeErr("begin insert event", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (calendar_id, title, description, event_location, custom_app_uri,
		   dtstart, dtend, event_timezone, all_day, rrule, event_status, availability,
		   event_color, organizer_email, organizer_name)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		eventInsertArgs(calID, ev)...)
	if err != nil {
		return "", nativeErr("insert event", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", nativeErr("insert event", err)
	}
	if err := insertAttendees(ctx, tx, id, ev.Attendees); err != nil {
		return "", err
	}
	if err := insertReminders(ctx, tx, id, ev.Reminders); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", nativeErr("commit insert event", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *Store) UpdateEvent(ctx context.Context, ev domain.Event) error {
	calID, err := rowID(ev.CalendarID)
	if err != nil {
		return calendarNotFound(ev.CalendarID)
	}
	evID, err := rowID(ev.ID)
	if err != nil {
		return eventNotFound(ev.ID)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nativeErr("begin update event", err)
	}
	defer tx.Rollback()

	args := eventInsertArgs(calID, ev)[1:] // same column order, minus calendar_id
	args = append(args, evID, calID)
	res, err := tx.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, event_location = ?, custom_app_uri = ?,
		   dtstart = ?, dtend = ?, event_timezone = ?, all_day = ?, rrule = ?, event_status = ?,
		   availability = ?, event_color = ?, organizer_email = ?, organizer_name = ?
		 WHERE _id = ? AND calendar_id = ? AND original_id IS NULL`, args...)
	if err != nil {
		return nativeErr("update event", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eventNotFound(ev.ID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM attendees WHERE event_id = ?`, evID); err != nil {
		return nativeErr("replace attendees", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE event_id = ?`, evID); err != nil {
		return nativeErr("replace reminders", err)
	}
	if err := insertAttendees(ctx, tx, evID, ev.Attendees); err != nil {
		return err
	}
	if err := insertReminders(ctx, tx, evID, ev.Reminders); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return nativeErr("commit update event", err)
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	calID, err := rowID(calendarID)
	if err != nil {
		return calendarNotFound(calendarID)
	}
	evID, err := rowID(eventID)
	if err != nil {
		return eventNotFound(eventID)
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE _id = ? AND calendar_id = ?`, evID, calID)
	if err != nil {
		return nativeErr("delete event", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eventNotFound(eventID)
	}
	return nil
}

// DeleteOccurrence cancels one occurrence of a recurring series. With
// following=false an exception row referencing the master is inserted and
// the master's rule is left untouched; with following=true the master's
// rule is truncated at the occurrence preceding the cutoff.
func (s *Store) DeleteOccurrence(ctx context.Context, calendarID, eventID string, occurrenceStart time.Time, following bool) error {
	calID, err := rowID(calendarID)
	if err != nil {
		return calendarNotFound(calendarID)
	}
	evID, err := rowID(eventID)
	if err != nil {
		return eventNotFound(eventID)
	}

	var r eventRow
	err = s.db.GetContext(ctx, &r,
		`SELECT * FROM events WHERE _id = ? AND calendar_id = ? AND original_id IS NULL`, evID, calID)
	if err == sql.ErrNoRows {
		return eventNotFound(eventID)
	}
	if err != nil {
		return nativeErr("query event", err)
	}
	if !r.RRule.Valid || r.RRule.String == "" {
		// Non-recurring events have no occurrence distinction.
		return s.DeleteEvent(ctx, calendarID, eventID)
	}

	rule, start, err := s.masterRule(r)
	if err != nil {
		return err
	}
	expander, err := recurrence.Expander(rule, start)
	if err != nil {
		return nativeErr("evaluate recurrence", err)
	}

	occ := occurrenceStart.In(start.Location())
	if !isOccurrence(expander, occ) {
		return eventNotFound(eventID)
	}
	if following {
		return s.truncateSeries(ctx, r, rule, expander, occ)
	}
	return s.insertException(ctx, r, occ)
}

// insertException records a canceled exception instance for the given
// occurrence. A second cancellation of the same occurrence reports
// event-not-found rather than success.
func (s *Store) insertException(ctx context.Context, master eventRow, occ time.Time) error {
	millis := toMillis(occ)
	var existing int
	err := s.db.GetContext(ctx, &existing,
		`SELECT COUNT(*) FROM events WHERE original_id = ? AND original_instance_time = ?`,
		master.ID, millis)
	if err != nil {
		return nativeErr("query exception instances", err)
	}
	if existing > 0 {
		return eventNotFound(strconv.FormatInt(master.ID, 10))
	}

	duration := int64(0)
	if master.DtStart.Valid && master.DtEnd.Valid {
		duration = master.DtEnd.Int64 - master.DtStart.Int64
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (calendar_id, title, dtstart, dtend, event_timezone, all_day,
		   original_id, original_instance_time, event_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		master.CalendarID, master.Title, millis, millis+duration, master.Timezone,
		master.AllDay, master.ID, millis, statusCanceled)
	if err != nil {
		return nativeErr("insert exception instance", err)
	}
	appLog.Debug("provider: exception instance inserted",
		"event_id", master.ID, "instance", occ.Format(time.RFC3339))
	return nil
}

// truncateSeries rewrites the master's rule so the series ends at the
// occurrence just before the cutoff. Deleting from the first occurrence
// removes the event entirely.
func (s *Store) truncateSeries(ctx context.Context, master eventRow, rule *domain.RecurrenceRule, expander *rrule.RRule, occ time.Time) error {
	prev := expander.Before(occ, false)
	if prev.IsZero() {
		res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE _id = ?`, master.ID)
		if err != nil {
			return nativeErr("delete event", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return eventNotFound(strconv.FormatInt(master.ID, 10))
		}
		return nil
	}

	truncated := *rule
	truncated.Count = 0
	until := prev.UTC()
	truncated.Until = &until

	opt := recurrence.ToProvider(&truncated)
	res, err := s.db.ExecContext(ctx, `UPDATE events SET rrule = ? WHERE _id = ?`,
		opt.RRuleString(), master.ID)
	if err != nil {
		return nativeErr("truncate series", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eventNotFound(strconv.FormatInt(master.ID, 10))
	}
	// Exception rows at or past the cutoff no longer shadow anything.
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE original_id = ? AND original_instance_time >= ?`,
		master.ID, toMillis(occ)); err != nil {
		return nativeErr("prune exception instances", err)
	}
	return nil
}

// expandInstances materializes the instances of one master row inside
// [start, end], skipping occurrences canceled by exception rows.
func (s *Store) expandInstances(ctx context.Context, r eventRow, master *domain.Event, start, end time.Time) ([]domain.Event, error) {
	if master.Recurrence == nil {
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
		return nil, nativeErr("evaluate recurrence", err)
	}

	canceled, err := s.canceledInstances(ctx, r.ID)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(0)
	if master.End != nil {
		duration = master.End.Sub(*master.Start)
	}

	var out []domain.Event
	for _, occStart := range expander.Between(start, end, true) {
		if canceled[toMillis(occStart)] {
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

func (s *Store) canceledInstances(ctx context.Context, masterID int64) (map[int64]bool, error) {
	var times []int64
	err := s.db.SelectContext(ctx, &times,
		`SELECT original_instance_time FROM events
		 WHERE original_id = ? AND event_status = ? AND original_instance_time IS NOT NULL`,
		masterID, statusCanceled)
	if err != nil {
		return nil, nativeErr("query exception instances", err)
	}
	out := make(map[int64]bool, len(times))
	for _, t := range times {
		out[t] = true
	}
	return out, nil
}

func (s *Store) masterRule(r eventRow) (*domain.RecurrenceRule, time.Time, error) {
	opt, err := rrule.StrToROption(r.RRule.String)
	if err != nil {
		return nil, time.Time{}, nativeErr("decode stored recurrence", err)
	}
	loc := locationOf(r)
	start := fromMillis(r.DtStart.Int64, loc)
	return recurrence.FromProvider(*opt), start, nil
}

func (s *Store) eventFromRow(ctx context.Context, r eventRow) (*domain.Event, error) {
	loc := locationOf(r)
	ev := &domain.Event{
		CalendarID:  strconv.FormatInt(r.CalendarID, 10),
		ID:          strconv.FormatInt(r.ID, 10),
		Title:       r.Title.String,
		Description: r.Description.String,
		Location:    r.Location.String,
		URL:         r.URL.String,
		AllDay:      r.AllDay,
		Color:       r.EventColor.String,
	}
	if r.DtStart.Valid {
		t := fromMillis(r.DtStart.Int64, loc)
		ev.Start = &t
	}
	if r.DtEnd.Valid {
		t := fromMillis(r.DtEnd.Int64, loc)
		ev.End = &t
	}
	if r.OriginalInstanceTime.Valid {
		t := fromMillis(r.OriginalInstanceTime.Int64, loc)
		ev.OriginalStart = &t
	}
	if r.RRule.Valid && r.RRule.String != "" {
		opt, err := rrule.StrToROption(r.RRule.String)
		if err != nil {
			return nil, nativeErr("decode stored recurrence", err)
		}
		ev.Recurrence = recurrence.FromProvider(*opt)
	}
	if r.EventStatus.Valid {
		ev.Status = statusFromColumn(r.EventStatus.Int64)
	}
	if r.Availability.Valid {
		ev.Availability = availabilityFromColumn(r.Availability.Int64)
	}
	if r.OrganizerEmail.Valid && r.OrganizerEmail.String != "" {
		ev.Organizer = &domain.Attendee{
			Email: r.OrganizerEmail.String,
			Name:  r.OrganizerName.String,
			Role:  domain.RoleChair,
		}
	}

	var atts []attendeeRow
	err := s.db.SelectContext(ctx, &atts,
		`SELECT event_id, email, name, relationship, status, is_current_user
		 FROM attendees WHERE event_id = ? ORDER BY _id ASC`, r.ID)
	if err != nil {
		return nil, nativeErr("query attendees", err)
	}
	for _, a := range atts {
		ev.Attendees = append(ev.Attendees, domain.Attendee{
			Email:         a.Email,
			Name:          a.Name.String,
			Role:          roleFromColumn(a.Relationship),
			Status:        attendeeStatusFromColumn(a.Status),
			IsCurrentUser: a.IsCurrentUser,
		})
	}

	var rems []reminderRow
	err = s.db.SelectContext(ctx, &rems,
		`SELECT event_id, minutes FROM reminders WHERE event_id = ? ORDER BY _id ASC`, r.ID)
	if err != nil {
		return nil, nativeErr("query reminders", err)
	}
	for _, rm := range rems {
		ev.Reminders = append(ev.Reminders, domain.Reminder{Minutes: rm.Minutes})
	}
	return ev, nil
}

func (s *Store) requireCalendar(ctx context.Context, calID int64, calendarID string) error {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM calendars WHERE _id = ?`, calID); err != nil {
		return nativeErr("query calendars", err)
	}
	if n == 0 {
		return calendarNotFound(calendarID)
	}
	return nil
}

func eventInsertArgs(calID int64, ev domain.Event) []any {
	var rruleStr any
	if ev.Recurrence != nil {
		opt := recurrence.ToProvider(ev.Recurrence)
		rruleStr = opt.RRuleString()
	}
	var organizerEmail, organizerName any
	if ev.Organizer != nil {
		organizerEmail = ev.Organizer.Email
		organizerName = nullStr(ev.Organizer.Name)
	}
	var tz any
	if ev.Start != nil {
		tz = ev.Start.Location().String()
	}
	return []any{
		calID,
		nullStr(ev.Title), nullStr(ev.Description), nullStr(ev.Location), nullStr(ev.URL),
		nullMillis(ev.Start), nullMillis(ev.End), tz, ev.AllDay, rruleStr,
		statusToColumn(ev.Status), availabilityToColumn(ev.Availability),
		nullStr(ev.Color), organizerEmail, organizerName,
	}
}

func insertAttendees(ctx context.Context, tx *sqlx.Tx, eventID int64, attendees []domain.Attendee) error {
	for _, a := range attendees {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO attendees (event_id, email, name, relationship, status, is_current_user)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			eventID, a.Email, nullStr(a.Name), roleToColumn(a.Role),
			attendeeStatusToColumn(a.Status), a.IsCurrentUser)
		if err != nil {
			return nativeErr("insert attendee", err)
		}
	}
	return nil
}

func insertReminders(ctx context.Context, tx *sqlx.Tx, eventID int64, reminders []domain.Reminder) error {
	for _, r := range reminders {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO reminders (event_id, minutes) VALUES (?, ?)`, eventID, r.Minutes)
		if err != nil {
			return nativeErr("insert reminder", err)
		}
	}
	return nil
}

// isOccurrence checks exact membership of the instant in the series.
func isOccurrence(expander *rrule.RRule, occ time.Time) bool {
	hit := expander.Between(occ.Add(-time.Millisecond), occ.Add(time.Millisecond), true)
	for _, t := range hit {
		if t.Equal(occ) {
			return true
		}
	}
	return false
}

func containsID(ids []string, id int64) bool {
	s := strconv.FormatInt(id, 10)
	for _, v := range ids {
		if v == s {
			return true
		}
	}
	return false
}

func rowID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func locationOf(r eventRow) *time.Location {
	if r.Timezone.Valid && r.Timezone.String != "" {
		if loc, err := time.LoadLocation(r.Timezone.String); err == nil {
			return loc
		}
	}
	return time.UTC
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64, loc *time.Location) time.Time {
	return time.UnixMilli(ms).In(loc)
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func statusToColumn(s domain.EventStatus) any {
	switch s {
	case domain.StatusTentative:
		return statusTentative
	case domain.StatusConfirmed:
		return statusConfirmed
	case domain.StatusCanceled:
		return statusCanceled
	default:
		return nil
	}
}

func statusFromColumn(v int64) domain.EventStatus {
	switch v {
	case statusTentative:
		return domain.StatusTentative
	case statusConfirmed:
		return domain.StatusConfirmed
	case statusCanceled:
		return domain.StatusCanceled
	default:
		return domain.StatusNone
	}
}

func availabilityToColumn(a domain.Availability) any {
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
		return nil
	}
}

func availabilityFromColumn(v int64) domain.Availability {
	switch v {
	case availabilityFree:
		return domain.AvailabilityFree
	case availabilityTentative:
		return domain.AvailabilityTentative
	case availabilityUnavailable:
		return domain.AvailabilityUnavailable
	default:
		return domain.AvailabilityBusy
	}
}

func roleToColumn(r domain.AttendeeRole) int64 {
	switch r {
	case domain.RoleOptional:
		return relationshipOptional
	case domain.RoleChair:
		return relationshipChair
	case domain.RoleNonParticipant:
		return relationshipNonParticipant
	default:
		return relationshipRequired
	}
}

func roleFromColumn(v int64) domain.AttendeeRole {
	switch v {
	case relationshipOptional:
		return domain.RoleOptional
	case relationshipChair:
		return domain.RoleChair
	case relationshipNonParticipant:
		return domain.RoleNonParticipant
	default:
		return domain.RoleRequired
	}
}

func attendeeStatusToColumn(s domain.AttendeeStatus) int64 {
	switch s {
	case domain.AttendeeAccepted:
		return attendeeStatusAccepted
	case domain.AttendeeDeclined:
		return attendeeStatusDeclined
	case domain.AttendeePending:
		return attendeeStatusInvited
	case domain.AttendeeTentative:
		return attendeeStatusTentative
	default:
		return attendeeStatusNone
	}
}

func attendeeStatusFromColumn(v int64) domain.AttendeeStatus {
	switch v {
	case attendeeStatusAccepted:
		return domain.AttendeeAccepted
	case attendeeStatusDeclined:
		return domain.AttendeeDeclined
	case attendeeStatusInvited:
		return domain.AttendeePending
	case attendeeStatusTentative:
		return domain.AttendeeTentative
	default:
		return domain.AttendeeUnknown
	}
}

func calendarNotFound(id string) error {
	return &store.NativeError{Code: "CALENDAR_NOT_FOUND", Message: "calendar not found", Details: id}
}

func eventNotFound(id string) error {
	return &store.NativeError{Code: "EVENT_NOT_FOUND", Message: "event not found", Details: id}
}

func nativeErr(op string, err error) error {
	return &store.NativeError{Code: "SQLITE_ERROR", Message: op + " failed", Details: err.Error()}
}
