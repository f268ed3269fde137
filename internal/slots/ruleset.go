package slots

import (
	"fmt"
	"strings"
	"time"
)

// Row is one record from the rule repository, keyed by column name. Values are
// whatever the driver produced and are decoded with the Parse* functions.
type Row = map[string]any

// Column names in the rule repository.
const (
	ColDayOfWeek = "day_of_week"
	ColIsOpen    = "is_open"
	ColOpenTime  = "open_time"
	ColCloseTime = "close_time"

	ColStaffID     = "staff_id"
	ColWeekendDays = "weekend_days"
	ColLunchStart  = "lunch_start"
	ColLunchEnd    = "lunch_end"

	ColName     = "name"
	ColStartsOn = "starts_on"
	ColEndsOn   = "ends_on"

	ColStartMinute  = "start_minute"
	ColEndMinute    = "end_minute"
	ColRecurring    = "recurring"
	ColRecurringDay = "recurring_day"
	ColBlockDate    = "block_date"

	ColLeaveDate = "unavailable_date"
	ColLeaveType = "leave_type"
	ColStartTime = "start_time"
	ColEndTime   = "end_time"
)

// Staff working-hour columns are "<weekday>_start" / "<weekday>_end".
func staffStartColumn(d time.Weekday) string { return strings.ToLower(d.String()) + "_start" }
func staffEndColumn(d time.Weekday) string   { return strings.ToLower(d.String()) + "_end" }

// RuleRows is the raw input for BuildRuleSet.
type RuleRows struct {
	StoreHours []Row
	// Staff is nil when no staff member was requested or none was found.
	Staff      Row
	TimeOff    []Row
	TimeBlocks []Row
	Leaves     []Row
}

// RuleWarning records a rule row that could not be fully decoded. The row is
// dropped or degraded; resolution continues.
type RuleWarning struct {
	Table  string `json:"table"`
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (w RuleWarning) String() string {
	return fmt.Sprintf("%s[%d].%s=%s: %s", w.Table, w.Row, w.Field, w.Value, w.Reason)
}

type ruleBuilder struct {
	tz       *Timezone
	warnings []RuleWarning
}

func (b *ruleBuilder) warn(table string, row int, field string, value any, reason string) {
	b.warnings = append(b.warnings, RuleWarning{
		Table:  table,
		Row:    row,
		Field:  field,
		Value:  fmt.Sprintf("%v", value),
		Reason: reason,
	})
}

// BuildRuleSet decodes repository rows into a RuleSet. Malformed rows are
// reported as warnings and left out; they never fail the build.
func BuildRuleSet(rows RuleRows, tz *Timezone) (*RuleSet, []RuleWarning) {
	b := &ruleBuilder{tz: tz}
	rs := &RuleSet{store: make(map[time.Weekday]StoreHours)}

	for i, row := range rows.StoreHours {
		if h, ok := b.storeHours(i, row); ok {
			if _, dup := rs.store[h.Weekday]; dup {
				b.warn("business_hours", i, ColDayOfWeek, row[ColDayOfWeek], "duplicate weekday, first row kept")
				continue
			}
			rs.store[h.Weekday] = h
		}
	}
	if rows.Staff != nil {
		rs.staff = b.staffHours(rows.Staff)
	}
	for i, row := range rows.TimeOff {
		if t, ok := b.timeOff(i, row); ok {
			rs.timeOff = append(rs.timeOff, t)
		}
	}
	for i, row := range rows.TimeBlocks {
		if t, ok := b.timeBlock(i, row); ok {
			rs.blocks = append(rs.blocks, t)
		}
	}
	for i, row := range rows.Leaves {
		if l, ok := b.leave(i, row); ok {
			rs.leaves = append(rs.leaves, l)
		}
	}
	return rs, b.warnings
}

func (b *ruleBuilder) storeHours(i int, row Row) (StoreHours, bool) {
	const table = "business_hours"
	wd, ok := ParseWeekday(row[ColDayOfWeek])
	if !ok {
		b.warn(table, i, ColDayOfWeek, row[ColDayOfWeek], "not a weekday")
		return StoreHours{}, false
	}
	h := StoreHours{Weekday: wd, IsOpen: true}
	// Only an explicit false closes the store.
	if raw := row[ColIsOpen]; raw != nil {
		open, ok := ParseBool(raw)
		if !ok {
			b.warn(table, i, ColIsOpen, raw, "not a boolean, treated as open")
		} else {
			h.IsOpen = open
		}
	}
	open, okOpen := ParseMinuteField(row[ColOpenTime])
	closing, okClose := ParseMinuteField(row[ColCloseTime])
	switch {
	case okOpen && okClose && open <= closing:
		h.Hours = &MinuteRange{Start: open, End: closing}
	case okOpen && okClose:
		b.warn(table, i, ColCloseTime, row[ColCloseTime], "close before open, hours filter skipped")
	case h.IsOpen:
		b.warn(table, i, ColOpenTime, row[ColOpenTime], "unreadable open/close time, hours filter skipped")
	}
	return h, true
}

func (b *ruleBuilder) staffHours(row Row) *StaffHours {
	const table = "staff_hours"
	sh := &StaffHours{
		StaffID: staffIDOf(row),
		Windows: make(map[time.Weekday]MinuteRange),
	}
	if set, ok := ParseWeekdaySet(row[ColWeekendDays]); ok {
		sh.WeekendDays = set
	} else {
		b.warn(table, 0, ColWeekendDays, row[ColWeekendDays], "no weekday recognised, weekend set left empty")
	}

	for d := time.Sunday; d <= time.Saturday; d++ {
		rawStart, rawEnd := row[staffStartColumn(d)], row[staffEndColumn(d)]
		if rawStart == nil && rawEnd == nil {
			continue
		}
		start, okStart := ParseMinuteField(rawStart)
		end, okEnd := ParseMinuteField(rawEnd)
		if !okStart || !okEnd {
			b.warn(table, 0, staffStartColumn(d), fmt.Sprintf("%v-%v", rawStart, rawEnd), "unreadable window, day not worked")
			continue
		}
		if start > end {
			b.warn(table, 0, staffStartColumn(d), fmt.Sprintf("%d-%d", start, end), "start after end, day not worked")
			continue
		}
		sh.Windows[d] = MinuteRange{Start: start, End: end}
	}

	lunchStart, okStart := ParseMinuteField(row[ColLunchStart])
	lunchEnd, okEnd := ParseMinuteField(row[ColLunchEnd])
	if okStart && okEnd {
		lunch := MinuteRange{Start: lunchStart, End: lunchEnd}
		switch {
		case lunch.IsZero():
		case lunchStart > lunchEnd:
			b.warn(table, 0, ColLunchStart, fmt.Sprintf("%d-%d", lunchStart, lunchEnd), "lunch start after end, ignored")
		default:
			sh.Lunch = &lunch
		}
	}
	return sh
}

func (b *ruleBuilder) timeOff(i int, row Row) (TimeOffEntry, bool) {
	const table = "time_off"
	start, ok := ParseFlexibleDate(row[ColStartsOn], b.tz)
	if !ok {
		b.warn(table, i, ColStartsOn, row[ColStartsOn], "unreadable date")
		return TimeOffEntry{}, false
	}
	end, ok := ParseFlexibleDate(row[ColEndsOn], b.tz)
	if !ok {
		b.warn(table, i, ColEndsOn, row[ColEndsOn], "unreadable date")
		return TimeOffEntry{}, false
	}
	switch {
	case end == start:
		// A same-day entry blocks that day.
		end = start.AddDays(1)
	case end < start:
		b.warn(table, i, ColEndsOn, row[ColEndsOn], "ends before it starts")
		return TimeOffEntry{}, false
	}
	return TimeOffEntry{
		StaffID:  staffIDOf(row),
		Name:     stringOf(row[ColName]),
		StartDay: start,
		EndDay:   end,
	}, true
}

func (b *ruleBuilder) timeBlock(i int, row Row) (TimeBlockEntry, bool) {
	const table = "time_block"
	start, okStart := ParseMinuteField(row[ColStartMinute])
	end, okEnd := ParseMinuteField(row[ColEndMinute])
	if !okStart || !okEnd || start > end {
		b.warn(table, i, ColStartMinute, fmt.Sprintf("%v-%v", row[ColStartMinute], row[ColEndMinute]), "unreadable minute window")
		return TimeBlockEntry{}, false
	}
	block := TimeBlockEntry{
		StaffID: staffIDOf(row),
		Name:    stringOf(row[ColName]),
		Minutes: MinuteRange{Start: start, End: end},
	}
	if raw := row[ColRecurring]; raw != nil {
		recurring, ok := ParseBool(raw)
		if !ok {
			b.warn(table, i, ColRecurring, raw, "not a boolean, treated as one-time")
		}
		block.Recurring = recurring
	}
	if block.Recurring {
		wd, ok := ParseWeekday(row[ColRecurringDay])
		if !ok {
			b.warn(table, i, ColRecurringDay, row[ColRecurringDay], "not a weekday")
			return TimeBlockEntry{}, false
		}
		block.Weekday = wd
		return block, true
	}
	day, ok := ParseFlexibleDate(row[ColBlockDate], b.tz)
	if !ok {
		b.warn(table, i, ColBlockDate, row[ColBlockDate], "unreadable date")
		return TimeBlockEntry{}, false
	}
	block.Day = day
	return block, true
}

func (b *ruleBuilder) leave(i int, row Row) (StaffLeave, bool) {
	const table = "staff_leaves"
	day, ok := ParseFlexibleDate(row[ColLeaveDate], b.tz)
	if !ok {
		b.warn(table, i, ColLeaveDate, row[ColLeaveDate], "unreadable date")
		return StaffLeave{}, false
	}
	l := StaffLeave{StaffID: staffIDOf(row), Day: day}
	switch normalizeLeaveType(row[ColLeaveType]) {
	case "fullday", "full":
		l.FullDay = true
	case "halfday", "half":
		start, okStart := ParseMinuteField(row[ColStartTime])
		end, okEnd := ParseMinuteField(row[ColEndTime])
		if !okStart || !okEnd || start > end {
			b.warn(table, i, ColStartTime, fmt.Sprintf("%v-%v", row[ColStartTime], row[ColEndTime]), "unreadable half-day window")
			return StaffLeave{}, false
		}
		l.Minutes = MinuteRange{Start: start, End: end}
	default:
		b.warn(table, i, ColLeaveType, row[ColLeaveType], "unknown leave type")
		return StaffLeave{}, false
	}
	return l, true
}

func normalizeLeaveType(raw any) string {
	s := strings.ToLower(stringOf(raw))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}

func staffIDOf(row Row) string {
	return stringOf(row[ColStaffID])
}

func stringOf(raw any) string {
	if raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(raw))
}
