package slots

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Rule rows come from loosely typed storage: the same column may hold a native
// value, a JSON document, or a string produced by some earlier export. Every
// parser here returns (value, ok) and never panics; ok=false means "no usable
// rule", which callers keep distinct from a zero value.

var weekdayByName = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// WeekdaySet is a set of weekdays stored as a bitmask.
type WeekdaySet uint8

func (s WeekdaySet) Has(d time.Weekday) bool { return s&(1<<uint(d)) != 0 }

func (s WeekdaySet) With(d time.Weekday) WeekdaySet { return s | 1<<uint(d) }

func (s WeekdaySet) Empty() bool { return s == 0 }

// Names lists the members Sunday first.
func (s WeekdaySet) Names() []string {
	out := []string{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			out = append(out, d.String())
		}
	}
	return out
}

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

func weekdayFromName(token string) (time.Weekday, bool) {
	d, ok := weekdayByName[strings.ToLower(strings.TrimSpace(token))]
	return d, ok
}

// ParseWeekday accepts 0..6 (Sunday=0) as a number or numeric string, or a
// weekday name in any case.
func ParseWeekday(raw any) (time.Weekday, bool) {
	if n, ok := asInt(raw); ok {
		if n < 0 || n > 6 {
			return 0, false
		}
		return time.Weekday(n), true
	}
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if n, err := strconv.Atoi(s); err == nil {
			return ParseWeekday(n)
		}
		return weekdayFromName(s)
	}
	return 0, false
}

// ParseWeekdaySet decodes a weekend-days field. Accepted shapes:
//
//	[]string{"Saturday"}            native list (text[] columns decode to []any)
//	`["Saturday","Sunday"]`         JSON list
//	`{"Saturday": true}`            JSON object, keys are the days
//	`"{\"Saturday\",\"Sunday\"}"`   quoted, escaped Postgres array literal
//	`Saturday, sunday`              separated string
//
// The result is empty with ok=false when a non-empty input names no weekday.
func ParseWeekdaySet(raw any) (WeekdaySet, bool) {
	set, tokens := weekdayTokens(raw, 0)
	if tokens == 0 {
		return 0, true
	}
	return set, !set.Empty()
}

// weekdayTokens returns the parsed set and how many non-empty tokens were seen.
func weekdayTokens(raw any, depth int) (WeekdaySet, int) {
	var set WeekdaySet
	add := func(tok string) int {
		tok = strings.Trim(strings.TrimSpace(tok), `"'\`)
		if tok == "" {
			return 0
		}
		if d, ok := ParseWeekday(tok); ok {
			set = set.With(d)
		}
		return 1
	}

	switch v := raw.(type) {
	case nil:
		return 0, 0
	case []string:
		n := 0
		for _, s := range v {
			n += add(s)
		}
		return set, n
	case []any:
		n := 0
		for _, item := range v {
			s, c := weekdayTokens(item, depth+1)
			set |= s
			n += c
		}
		return set, n
	case map[string]any:
		n := 0
		for k := range v {
			n += add(k)
		}
		return set, n
	case time.Weekday:
		return set.With(v), 1
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, 0
		}
		if depth < 3 {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				return weekdayTokens(decoded, depth+1)
			}
		}
		cleaned := strings.NewReplacer("{", "", "}", "", "[", "", "]", "", `\`, "", `"`, "", "'", "").Replace(s)
		n := 0
		for _, part := range strings.FieldsFunc(cleaned, func(r rune) bool {
			return r == ',' || r == ';' || r == '|'
		}) {
			n += add(part)
		}
		return set, n
	default:
		if d, ok := ParseWeekday(v); ok {
			return set.With(d), 1
		}
		return 0, 1
	}
}

// ParseMinuteField decodes a minutes-since-midnight field. Numbers and numeric
// strings are minutes; "HH:MM" and "HH:MM:SS" strings are converted. Values
// outside 0..1440 are rejected.
func ParseMinuteField(raw any) (int, bool) {
	if n, ok := asInt(raw); ok {
		return checkMinute(n)
	}
	s, ok := raw.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return 0, false
	}
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return 0, false
		}
		h, err := strconv.Atoi(parts[0])
		if err != nil || h < 0 || h > 24 {
			return 0, false
		}
		m, err := strconv.Atoi(parts[1])
		if err != nil || m < 0 || m > 59 {
			return 0, false
		}
		return checkMinute(h*60 + m)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return checkMinute(int(f))
}

func checkMinute(n int) (int, bool) {
	if n < 0 || n > 24*60 {
		return 0, false
	}
	return n, true
}

// ParseBool accepts booleans, 0/1 and the usual textual spellings.
func ParseBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "t", "yes", "y", "1":
			return true, true
		case "false", "f", "no", "n", "0":
			return false, true
		}
		return false, false
	}
	if n, ok := asInt(raw); ok && (n == 0 || n == 1) {
		return n == 1, true
	}
	return false, false
}

var zonelessDateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var zonedDateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05Z07",
}

// ParseFlexibleDate extracts the calendar date a rule applies to.
//
// Values without zone information are read as calendar dates directly; the
// time-of-day portion of "9/17/2025, 12:00:00 AM" is discarded rather than
// round-tripped through UTC. Values that carry a zone are converted to the
// operating timezone first. A time.Time at exactly UTC midnight is what a SQL
// date column decodes to and is taken as that date.
func ParseFlexibleDate(raw any, tz *Timezone) (DayKey, bool) {
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return "", false
		}
		return instantDay(v, tz), true
	case *time.Time:
		if v == nil {
			return "", false
		}
		return ParseFlexibleDate(*v, tz)
	case string:
		return parseDateString(strings.TrimSpace(v), tz)
	}
	return "", false
}

func parseDateString(s string, tz *Timezone) (DayKey, bool) {
	if s == "" {
		return "", false
	}
	if datePart, _, found := strings.Cut(s, ","); found {
		return parseCalendarDate(strings.TrimSpace(datePart))
	}
	if d, ok := parseCalendarDate(s); ok {
		return d, true
	}
	for _, layout := range zonedDateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return instantDay(t, tz), true
		}
	}
	for _, layout := range zonelessDateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dayKeyFromDate(t.Date()), true
		}
	}
	// "9/17/2025 12:00:00 AM" without the comma
	if datePart, _, found := strings.Cut(s, " "); found {
		return parseCalendarDate(datePart)
	}
	return "", false
}

func parseCalendarDate(s string) (DayKey, bool) {
	for _, layout := range []string{"2006-01-02", "1/2/2006", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return dayKeyFromDate(t.Date()), true
		}
	}
	return "", false
}

// instantDay converts a zoned value to its local day, except that exact UTC
// midnight is read as the date it names: date pickers and SQL date columns
// produce that shape, and converting it would land on the previous day west
// of Greenwich.
func instantDay(t time.Time, tz *Timezone) DayKey {
	if _, offset := t.Zone(); offset == 0 && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return dayKeyFromDate(t.Date())
	}
	return tz.DayKey(t)
}

func asInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case float32:
		if float64(v) != math.Trunc(float64(v)) {
			return 0, false
		}
		return int(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
