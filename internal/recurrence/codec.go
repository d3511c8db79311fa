// Package recurrence implements the recurrence-rule codec: the textual
// FREQ/INTERVAL/COUNT/UNTIL/BY* grammar on one side and the two store
// families' native recurrence primitives on the other.
package recurrence

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	appLog "calbridge/internal/log"

	"calbridge/internal/domain"
)

// untilLayout is the restricted UNTIL timestamp format carried by the
// grammar. Values that do not parse leave the rule open-ended (fail-open).
const untilLayout = "20060102T150405Z"

// byDayPattern matches `(sign)?(ordinal)?(weekday)` tokens such as
// "FR", "3MO" and "-1FR". Tokens that do not match are dropped, not
// rejected; drops go to the WARN diagnostic channel.
var byDayPattern = regexp.MustCompile(`^([+-]?)(\d{1,2})?(SU|MO|TU|WE|TH|FR|SA)$`)

var weekdayByCode = map[string]domain.DayOfWeek{
	"SU": domain.Sunday,
	"MO": domain.Monday,
	"TU": domain.Tuesday,
	"WE": domain.Wednesday,
	"TH": domain.Thursday,
	"FR": domain.Friday,
	"SA": domain.Saturday,
}

var codeByWeekday = map[domain.DayOfWeek]string{
	domain.Sunday:    "SU",
	domain.Monday:    "MO",
	domain.Tuesday:   "TU",
	domain.Wednesday: "WE",
	domain.Thursday:  "TH",
	domain.Friday:    "FR",
	domain.Saturday:  "SA",
}

// Parse decodes a recurrence grammar string into a RecurrenceRule.
//
// FREQ is the only required key. INTERVAL defaults to 1. COUNT and UNTIL
// are mutually exclusive; when both appear COUNT wins (documented
// behavior, not an error). Malformed UNTIL values and malformed BYDAY
// tokens are dropped rather than failing the parse.
func Parse(s string) (*domain.RecurrenceRule, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty recurrence rule")
	}

	rule := &domain.RecurrenceRule{Interval: 1}
	haveFreq := false

	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			appLog.Warn("recurrence: dropped malformed rule part", "part", part)
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "FREQ":
			freq, err := parseFrequency(value)
			if err != nil {
				return nil, err
			}
			rule.Frequency = freq
			haveFreq = true
		case "INTERVAL":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				rule.Interval = n
			} else {
				appLog.Warn("recurrence: dropped invalid INTERVAL", "value", value)
			}
		case "COUNT":
			if n, err := strconv.Atoi(value); err == nil {
				rule.Count = n
			} else {
				appLog.Warn("recurrence: dropped invalid COUNT", "value", value)
			}
		case "UNTIL":
			if t, err := time.Parse(untilLayout, value); err == nil {
				rule.Until = &t
			} else {
				// Fail-open: an unparseable UNTIL leaves the rule open-ended.
				appLog.Warn("recurrence: dropped unparseable UNTIL", "value", value)
			}
		case "BYDAY":
			rule.ByDays = parseByDays(value)
		case "BYMONTHDAY":
			rule.ByMonthDays = parseIntList(key, value)
		case "BYMONTH":
			rule.ByMonths = parseIntList(key, value)
		case "BYYEARDAY":
			rule.ByYearDays = parseIntList(key, value)
		case "BYWEEKNO":
			rule.ByWeekNos = parseIntList(key, value)
		case "BYSETPOS":
			rule.BySetPos = parseIntList(key, value)
		default:
			appLog.Warn("recurrence: ignored unknown rule key", "key", key)
		}
	}

	if !haveFreq {
		return nil, errors.New("recurrence rule is missing FREQ")
	}

	// COUNT takes precedence when both end conditions were present.
	if rule.Count > 0 && rule.Until != nil {
		rule.Until = nil
	}

	return rule, nil
}

func parseFrequency(value string) (domain.Frequency, error) {
	switch strings.ToUpper(value) {
	case "DAILY":
		return domain.FreqDaily, nil
	case "WEEKLY":
		return domain.FreqWeekly, nil
	case "MONTHLY":
		return domain.FreqMonthly, nil
	case "YEARLY":
		return domain.FreqYearly, nil
	default:
		return "", errors.New("unknown FREQ value: " + value)
	}
}

func parseByDays(value string) []domain.ByDay {
	var out []domain.ByDay
	for _, token := range strings.Split(value, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		m := byDayPattern.FindStringSubmatch(strings.ToUpper(token))
		if m == nil {
			appLog.Warn("recurrence: dropped malformed BYDAY token", "token", token)
			continue
		}
		bd := domain.ByDay{Day: weekdayByCode[m[3]]}
		if m[2] != "" {
			n, _ := strconv.Atoi(m[2])
			if m[1] == "-" {
				n = -n
			}
			bd.Ordinal = n
		}
		out = append(out, bd)
	}
	return out
}

func parseIntList(key, value string) []int {
	var out []int
	for _, token := range strings.Split(value, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		n, err := strconv.Atoi(token)
		if err != nil {
			appLog.Warn("recurrence: dropped non-integer list entry", "key", key, "token", token)
			continue
		}
		out = append(out, n)
	}
	return out
}

// Generate encodes a RecurrenceRule back into the grammar. Only
// non-default fields are emitted, in a stable order, so that
// Parse(Generate(r)) reproduces r for every rule this codec can emit.
// When both COUNT and an UNTIL instant are set, COUNT is emitted.
func Generate(r *domain.RecurrenceRule) string {
	var b strings.Builder
	b.WriteString("FREQ=")
	b.WriteString(string(r.Frequency))

	if r.Interval > 1 {
		b.WriteString(";INTERVAL=")
		b.WriteString(strconv.Itoa(r.Interval))
	}
	if len(r.ByDays) > 0 {
		b.WriteString(";BYDAY=")
		for i, bd := range r.ByDays {
			if i > 0 {
				b.WriteByte(',')
			}
			if bd.Ordinal != 0 {
				b.WriteString(strconv.Itoa(bd.Ordinal))
			}
			b.WriteString(codeByWeekday[bd.Day])
		}
	}
	writeIntList(&b, "BYMONTHDAY", r.ByMonthDays)
	writeIntList(&b, "BYMONTH", r.ByMonths)
	writeIntList(&b, "BYYEARDAY", r.ByYearDays)
	writeIntList(&b, "BYWEEKNO", r.ByWeekNos)
	writeIntList(&b, "BYSETPOS", r.BySetPos)

	switch {
	case r.Count > 0:
		b.WriteString(";COUNT=")
		b.WriteString(strconv.Itoa(r.Count))
	case r.Until != nil:
		b.WriteString(";UNTIL=")
		b.WriteString(r.Until.UTC().Format(untilLayout))
	}

	return b.String()
}

func writeIntList(b *strings.Builder, key string, values []int) {
	if len(values) == 0 {
		return
	}
	b.WriteByte(';')
	b.WriteString(key)
	b.WriteByte('=')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
}
