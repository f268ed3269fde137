package slots

import (
	"fmt"
	"time"
)

// DefaultTimezone is the zone the business rules were authored in.
const DefaultTimezone = "America/Denver"

const displayLayout = "03:04 PM"

// Timezone performs every local-day and local-time conversion for the service.
// All accessors go through Local so that minute-of-day, day key and weekday
// for one instant always agree, including across DST transitions.
type Timezone struct {
	loc *time.Location
}

func LoadTimezone(name string) (*Timezone, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return &Timezone{loc: loc}, nil
}

func NewTimezone(loc *time.Location) *Timezone {
	if loc == nil {
		loc = time.UTC
	}
	return &Timezone{loc: loc}
}

func (tz *Timezone) Location() *time.Location { return tz.loc }

func (tz *Timezone) Name() string { return tz.loc.String() }

// Local converts an instant to wall-clock time in the operating zone.
func (tz *Timezone) Local(t time.Time) time.Time {
	return t.In(tz.loc)
}

// MinutesOfDay returns the local minute of day in [0, 1439].
func (tz *Timezone) MinutesOfDay(t time.Time) int {
	l := tz.Local(t)
	return l.Hour()*60 + l.Minute()
}

func (tz *Timezone) DayKey(t time.Time) DayKey {
	y, m, d := tz.Local(t).Date()
	return dayKeyFromDate(y, m, d)
}

func (tz *Timezone) Weekday(t time.Time) time.Weekday {
	return tz.Local(t).Weekday()
}

// Display formats the instant as a 12-hour local time, e.g. "09:30 AM".
func (tz *Timezone) Display(t time.Time) string {
	return tz.Local(t).Format(displayLayout)
}

func (tz *Timezone) Today(now time.Time) DayKey {
	return tz.DayKey(now)
}

// Midnight is the first instant of the local calendar day.
func (tz *Timezone) Midnight(d DayKey) time.Time {
	c := d.civil()
	return time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, tz.loc)
}

// EndOfDay is 23:59:59.999 local on the given day.
func (tz *Timezone) EndOfDay(d DayKey) time.Time {
	c := d.civil()
	return time.Date(c.Year(), c.Month(), c.Day(), 23, 59, 59, int(999*time.Millisecond), tz.loc)
}

// Bucket regroups raw provider instants by local day. Provider day keys are
// ignored because the provider may group in a different zone. Exact duplicate
// instants are collapsed.
func (tz *Timezone) Bucket(raw map[string][]time.Time) map[DayKey][]time.Time {
	out := make(map[DayKey][]time.Time)
	seen := make(map[int64]struct{})
	for _, instants := range raw {
		for _, t := range instants {
			if t.IsZero() {
				continue
			}
			k := t.UnixNano()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			day := tz.DayKey(t)
			out[day] = append(out[day], t)
		}
	}
	return out
}
