package recurrence

import (
	"time"

	"github.com/teambition/rrule-go"

	"calbridge/internal/domain"
)

// The two store families expose structurally different recurrence
// primitives. The provider family packs weekday+ordinal into a single
// combined value (rrule.Weekday); the event-store family carries the
// weekday and its week number as two separate fields. Both translations
// are field-by-field and lossless.

var rruleFreqByDomain = map[domain.Frequency]rrule.Frequency{
	domain.FreqDaily:   rrule.DAILY,
	domain.FreqWeekly:  rrule.WEEKLY,
	domain.FreqMonthly: rrule.MONTHLY,
	domain.FreqYearly:  rrule.YEARLY,
}

var domainFreqByRRule = map[rrule.Frequency]domain.Frequency{
	rrule.DAILY:   domain.FreqDaily,
	rrule.WEEKLY:  domain.FreqWeekly,
	rrule.MONTHLY: domain.FreqMonthly,
	rrule.YEARLY:  domain.FreqYearly,
}

// rrule weekdays number Monday..Sunday as 0..6; the domain numbers
// Sunday..Saturday as 0..6.
func toRRuleWeekday(d domain.DayOfWeek, ordinal int) rrule.Weekday {
	base := []rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}[int(d)%7]
	if ordinal != 0 {
		return base.Nth(ordinal)
	}
	return base
}

func fromRRuleWeekday(w rrule.Weekday) domain.ByDay {
	return domain.ByDay{
		Day:     domain.DayOfWeek((w.Day() + 1) % 7),
		Ordinal: w.N(),
	}
}

// ToProvider maps a normalized rule onto the provider family's native
// primitive. Count wins over Until when both are set, matching the codec.
func ToProvider(r *domain.RecurrenceRule) rrule.ROption {
	opt := rrule.ROption{
		Freq:       rruleFreqByDomain[r.Frequency],
		Interval:   r.Interval,
		Bymonthday: append([]int(nil), r.ByMonthDays...),
		Bymonth:    append([]int(nil), r.ByMonths...),
		Byyearday:  append([]int(nil), r.ByYearDays...),
		Byweekno:   append([]int(nil), r.ByWeekNos...),
		Bysetpos:   append([]int(nil), r.BySetPos...),
	}
	if opt.Interval == 0 {
		opt.Interval = 1
	}
	for _, bd := range r.ByDays {
		opt.Byweekday = append(opt.Byweekday, toRRuleWeekday(bd.Day, bd.Ordinal))
	}
	switch {
	case r.Count > 0:
		opt.Count = r.Count
	case r.Until != nil:
		opt.Until = r.Until.UTC()
	}
	return opt
}

// FromProvider decodes the provider family's native primitive back into a
// normalized rule, unpacking the combined weekday+ordinal values.
func FromProvider(opt rrule.ROption) *domain.RecurrenceRule {
	r := &domain.RecurrenceRule{
		Frequency:   domainFreqByRRule[opt.Freq],
		Interval:    opt.Interval,
		Count:       opt.Count,
		ByMonthDays: append([]int(nil), opt.Bymonthday...),
		ByMonths:    append([]int(nil), opt.Bymonth...),
		ByYearDays:  append([]int(nil), opt.Byyearday...),
		ByWeekNos:   append([]int(nil), opt.Byweekno...),
		BySetPos:    append([]int(nil), opt.Bysetpos...),
	}
	if r.Interval == 0 {
		r.Interval = 1
	}
	for _, w := range opt.Byweekday {
		r.ByDays = append(r.ByDays, fromRRuleWeekday(w))
	}
	if r.Count == 0 && !opt.Until.IsZero() {
		u := opt.Until.UTC()
		r.Until = &u
	}
	return r
}

// EventKindFrequency is the event-store family's typed frequency.
type EventKindFrequency int

const (
	EventKindDaily EventKindFrequency = iota
	EventKindWeekly
	EventKindMonthly
	EventKindYearly
)

// EventKindDayOfWeek carries the weekday and its ordinal week number as
// two separate fields; days are numbered 1=Sunday..7=Saturday.
type EventKindDayOfWeek struct {
	Day        int
	WeekNumber int
}

// EventKindRule is the event-store family's native recurrence primitive.
// Exactly one of OccurrenceCount / EndDate is set for bounded series.
type EventKindRule struct {
	Frequency       EventKindFrequency
	Interval        int
	OccurrenceCount int
	EndDate         *time.Time

	DaysOfWeek   []EventKindDayOfWeek
	DaysOfMonth  []int
	MonthsOfYear []int
	DaysOfYear   []int
	WeeksOfYear  []int
	SetPositions []int
}

var eventKindFreqByDomain = map[domain.Frequency]EventKindFrequency{
	domain.FreqDaily:   EventKindDaily,
	domain.FreqWeekly:  EventKindWeekly,
	domain.FreqMonthly: EventKindMonthly,
	domain.FreqYearly:  EventKindYearly,
}

var domainFreqByEventKind = map[EventKindFrequency]domain.Frequency{
	EventKindDaily:   domain.FreqDaily,
	EventKindWeekly:  domain.FreqWeekly,
	EventKindMonthly: domain.FreqMonthly,
	EventKindYearly:  domain.FreqYearly,
}

// ToEventKind maps a normalized rule onto the event-store family's
// primitive, splitting each weekday selector into its two fields.
func ToEventKind(r *domain.RecurrenceRule) EventKindRule {
	out := EventKindRule{
		Frequency:    eventKindFreqByDomain[r.Frequency],
		Interval:     r.Interval,
		DaysOfMonth:  append([]int(nil), r.ByMonthDays...),
		MonthsOfYear: append([]int(nil), r.ByMonths...),
		DaysOfYear:   append([]int(nil), r.ByYearDays...),
		WeeksOfYear:  append([]int(nil), r.ByWeekNos...),
		SetPositions: append([]int(nil), r.BySetPos...),
	}
	if out.Interval == 0 {
		out.Interval = 1
	}
	for _, bd := range r.ByDays {
		out.DaysOfWeek = append(out.DaysOfWeek, EventKindDayOfWeek{
			Day:        int(bd.Day) + 1,
			WeekNumber: bd.Ordinal,
		})
	}
	switch {
	case r.Count > 0:
		out.OccurrenceCount = r.Count
	case r.Until != nil:
		u := *r.Until
		out.EndDate = &u
	}
	return out
}

// FromEventKind decodes the event-store family's primitive back into a
// normalized rule.
func FromEventKind(rule EventKindRule) *domain.RecurrenceRule {
	r := &domain.RecurrenceRule{
		Frequency:   domainFreqByEventKind[rule.Frequency],
		Interval:    rule.Interval,
		Count:       rule.OccurrenceCount,
		ByMonthDays: append([]int(nil), rule.DaysOfMonth...),
		ByMonths:    append([]int(nil), rule.MonthsOfYear...),
		ByYearDays:  append([]int(nil), rule.DaysOfYear...),
		ByWeekNos:   append([]int(nil), rule.WeeksOfYear...),
		BySetPos:    append([]int(nil), rule.SetPositions...),
	}
	if r.Interval == 0 {
		r.Interval = 1
	}
	for _, d := range rule.DaysOfWeek {
		r.ByDays = append(r.ByDays, domain.ByDay{
			Day:     domain.DayOfWeek(d.Day - 1),
			Ordinal: d.WeekNumber,
		})
	}
	if r.Count == 0 && rule.EndDate != nil {
		u := *rule.EndDate
		r.Until = &u
	}
	return r
}

// Expander builds an evaluable rule anchored at the series start. Both
// reference adapters use it to materialize concrete occurrences.
func Expander(r *domain.RecurrenceRule, dtstart time.Time) (*rrule.RRule, error) {
	opt := ToProvider(r)
	opt.Dtstart = dtstart
	return rrule.NewRRule(opt)
}
