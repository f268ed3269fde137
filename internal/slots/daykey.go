package slots

import (
	"fmt"
	"time"
)

const dayKeyLayout = "2006-01-02"

// DayKey is a calendar date in the operating timezone, formatted YYYY-MM-DD.
// Lexical order is chronological order.
type DayKey string

// ParseDayKey validates s as a YYYY-MM-DD calendar date.
func ParseDayKey(s string) (DayKey, error) {
	t, err := time.Parse(dayKeyLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DayKey(t.Format(dayKeyLayout)), nil
}

func dayKeyFromDate(year int, month time.Month, day int) DayKey {
	return DayKey(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(dayKeyLayout))
}

// civil returns the date as a UTC midnight value. Only the Y/M/D fields are meaningful.
func (d DayKey) civil() time.Time {
	t, err := time.Parse(dayKeyLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d DayKey) AddDays(n int) DayKey {
	return DayKey(d.civil().AddDate(0, 0, n).Format(dayKeyLayout))
}

// Weekday of the calendar date itself; independent of any timezone.
func (d DayKey) Weekday() time.Weekday {
	return d.civil().Weekday()
}

func (d DayKey) String() string { return string(d) }
