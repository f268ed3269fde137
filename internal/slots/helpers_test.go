package slots

import (
	"testing"
	"time"
	_ "time/tzdata"
)

const (
	monday    = DayKey("2025-09-15")
	wednesday = DayKey("2025-09-17")
	thursday  = DayKey("2025-09-18")
	friday    = DayKey("2025-09-19")
	saturday  = DayKey("2025-09-20")
)

func denver(t *testing.T) *Timezone {
	t.Helper()
	tz, err := LoadTimezone("America/Denver")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	return tz
}

// at builds a local wall-clock instant on day.
func at(tz *Timezone, day DayKey, hh, mm int) time.Time {
	c := day.civil()
	return time.Date(c.Year(), c.Month(), c.Day(), hh, mm, 0, 0, tz.Location())
}

// storeRows opens Monday to Friday 09:00-19:00 and closes the weekend.
func storeRows() []Row {
	rows := make([]Row, 0, 7)
	for d := 0; d < 7; d++ {
		rows = append(rows, Row{
			ColDayOfWeek: d,
			ColIsOpen:    d >= 1 && d <= 5,
			ColOpenTime:  540,
			ColCloseTime: 1140,
		})
	}
	return rows
}

// staffRow works Monday to Friday 10:00-18:00 with a Saturday/Sunday weekend.
func staffRow() Row {
	row := Row{
		ColStaffID:     "A",
		ColWeekendDays: []any{"Saturday", "Sunday"},
	}
	for d := time.Monday; d <= time.Friday; d++ {
		row[staffStartColumn(d)] = 600
		row[staffEndColumn(d)] = 1080
	}
	return row
}

func daysFrom(first DayKey, n int) []DayKey {
	out := make([]DayKey, n)
	for i := range out {
		out[i] = first.AddDays(i)
	}
	return out
}

func resolveRows(t *testing.T, tz *Timezone, rows RuleRows, staffID string, days []DayKey, raw map[string][]time.Time) ResolvedDaySlots {
	t.Helper()
	rules, _ := BuildRuleSet(rows, tz)
	return ResolveDays(ResolveInput{
		Timezone: tz,
		Days:     days,
		Raw:      raw,
		Rules:    rules,
		StaffID:  staffID,
	})
}
