package slots

import "time"

// MinuteRange is an inclusive window of minutes since local midnight.
type MinuteRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r MinuteRange) Contains(minute int) bool {
	return minute >= r.Start && minute <= r.End
}

// IsZero reports the {0,0} window, which staff configuration uses to mean
// "does not work this weekday".
func (r MinuteRange) IsZero() bool {
	return r.Start == 0 && r.End == 0
}

type StoreHours struct {
	Weekday time.Weekday
	IsOpen  bool
	// Hours is nil when the row's open/close values could not be read; the
	// open flag still applies.
	Hours *MinuteRange
}

type StaffHours struct {
	StaffID     string
	Windows     map[time.Weekday]MinuteRange
	WeekendDays WeekdaySet
	Lunch       *MinuteRange
}

// TimeOffEntry blocks whole days in [StartDay, EndDay). An empty StaffID
// applies to every staff member.
type TimeOffEntry struct {
	StaffID  string
	Name     string
	StartDay DayKey
	EndDay   DayKey
}

func (t TimeOffEntry) Covers(day DayKey) bool {
	return day >= t.StartDay && day < t.EndDay
}

// TimeBlockEntry blocks a minute window either every Weekday (Recurring) or on
// one Day.
type TimeBlockEntry struct {
	StaffID   string
	Name      string
	Minutes   MinuteRange
	Recurring bool
	Weekday   time.Weekday
	Day       DayKey
}

func (b TimeBlockEntry) Blocks(minute int, weekday time.Weekday, day DayKey) bool {
	if b.Recurring {
		if b.Weekday != weekday {
			return false
		}
	} else if b.Day != day {
		return false
	}
	return b.Minutes.Contains(minute)
}

// StaffLeave is a single-day absence: the whole day, or a minute window of it.
type StaffLeave struct {
	StaffID string
	Day     DayKey
	FullDay bool
	Minutes MinuteRange
}

// RuleSet holds every availability layer for one resolution request.
type RuleSet struct {
	store   map[time.Weekday]StoreHours
	staff   *StaffHours
	timeOff []TimeOffEntry
	blocks  []TimeBlockEntry
	leaves  []StaffLeave
}

func applies(ruleStaffID, staffID string) bool {
	return ruleStaffID == "" || ruleStaffID == staffID
}

func (rs *RuleSet) StoreHoursFor(weekday time.Weekday) (StoreHours, bool) {
	h, ok := rs.store[weekday]
	return h, ok
}

// Staff returns the staff record, or nil when none was loaded.
func (rs *RuleSet) Staff() *StaffHours {
	return rs.staff
}

// StaffWindowFor returns the working window for weekday. It reports false when
// there is no staff record, no window for that day, the {0,0} sentinel, or the
// day is one of the staff member's weekend days.
func (rs *RuleSet) StaffWindowFor(weekday time.Weekday) (MinuteRange, bool) {
	if rs.staff == nil || rs.staff.WeekendDays.Has(weekday) {
		return MinuteRange{}, false
	}
	w, ok := rs.staff.Windows[weekday]
	if !ok || w.IsZero() {
		return MinuteRange{}, false
	}
	return w, true
}

func (rs *RuleSet) TimeOffBlocking(staffID string, day DayKey) bool {
	for _, t := range rs.timeOff {
		if applies(t.StaffID, staffID) && t.Covers(day) {
			return true
		}
	}
	return false
}

func (rs *RuleSet) TimeBlockBlocking(staffID string, minute int, weekday time.Weekday, day DayKey) bool {
	for _, b := range rs.blocks {
		if applies(b.StaffID, staffID) && b.Blocks(minute, weekday, day) {
			return true
		}
	}
	return false
}

// FullDayLeave reports whether staffID is absent for the whole of day.
func (rs *RuleSet) FullDayLeave(staffID string, day DayKey) bool {
	for _, l := range rs.leaves {
		if l.FullDay && l.Day == day && applies(l.StaffID, staffID) {
			return true
		}
	}
	return false
}

func (rs *RuleSet) LeaveBlocking(staffID string, day DayKey, minute int) bool {
	for _, l := range rs.leaves {
		if l.Day != day || !applies(l.StaffID, staffID) {
			continue
		}
		if l.FullDay || l.Minutes.Contains(minute) {
			return true
		}
	}
	return false
}

// RuleStats summarises what was loaded, for the response summary.
type RuleStats struct {
	StoreDays   int      `json:"storeDays"`
	StaffFound  bool     `json:"staffFound"`
	WeekendDays []string `json:"weekendDays,omitempty"`
	TimeOff     int      `json:"timeOff"`
	TimeBlocks  int      `json:"timeBlocks"`
	Leaves      int      `json:"leaves"`
}

func (rs *RuleSet) Stats() RuleStats {
	st := RuleStats{
		StoreDays:  len(rs.store),
		StaffFound: rs.staff != nil,
		TimeOff:    len(rs.timeOff),
		TimeBlocks: len(rs.blocks),
		Leaves:     len(rs.leaves),
	}
	if rs.staff != nil {
		st.WeekendDays = rs.staff.WeekendDays.Names()
	}
	return st
}
