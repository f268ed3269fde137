package slots

import (
	"testing"
	"time"
)

func TestBuildRuleSetStoreHours(t *testing.T) {
	tz := denver(t)
	rows := RuleRows{StoreHours: []Row{
		{ColDayOfWeek: 1, ColIsOpen: true, ColOpenTime: "09:00", ColCloseTime: "19:00"},
		{ColDayOfWeek: "Monday", ColIsOpen: false, ColOpenTime: 0, ColCloseTime: 0},
		{ColDayOfWeek: 2, ColIsOpen: "maybe", ColOpenTime: 540, ColCloseTime: 1140},
		{ColDayOfWeek: 3, ColIsOpen: nil, ColOpenTime: "late", ColCloseTime: 1140},
		{ColDayOfWeek: 6, ColIsOpen: "f"},
		{ColDayOfWeek: "Funday", ColIsOpen: true},
	}}

	rs, warnings := BuildRuleSet(rows, tz)

	mon, ok := rs.StoreHoursFor(time.Monday)
	if !ok || !mon.IsOpen || mon.Hours == nil || *mon.Hours != (MinuteRange{Start: 540, End: 1140}) {
		t.Fatalf("expected first Monday row kept, got %+v", mon)
	}
	if tue, _ := rs.StoreHoursFor(time.Tuesday); !tue.IsOpen {
		t.Fatal("unreadable is_open should count as open")
	}
	wed, _ := rs.StoreHoursFor(time.Wednesday)
	if !wed.IsOpen || wed.Hours != nil {
		t.Fatalf("expected open Wednesday without hours filter, got %+v", wed)
	}
	if sat, _ := rs.StoreHoursFor(time.Saturday); sat.IsOpen {
		t.Fatal("expected Saturday closed")
	}
	if _, ok := rs.StoreHoursFor(time.Sunday); ok {
		t.Fatal("expected no Sunday row")
	}
	if len(warnings) < 4 {
		t.Fatalf("expected warnings for duplicate, is_open, hours and weekday, got %v", warnings)
	}
}

func TestBuildRuleSetStaffHours(t *testing.T) {
	tz := denver(t)
	row := staffRow()
	row[ColWeekendDays] = `"{\"Saturday\"}"`
	row[staffStartColumn(time.Sunday)] = 600
	row[staffEndColumn(time.Sunday)] = 900
	row[staffStartColumn(time.Wednesday)] = 0
	row[staffEndColumn(time.Wednesday)] = 0
	row[staffStartColumn(time.Thursday)] = "noon"
	row[ColLunchStart] = "12:00"
	row[ColLunchEnd] = "12:59"

	rs, _ := BuildRuleSet(RuleRows{Staff: row}, tz)

	staff := rs.Staff()
	if staff == nil || staff.StaffID != "A" {
		t.Fatalf("expected staff A, got %+v", staff)
	}
	if !staff.WeekendDays.Has(time.Saturday) || staff.WeekendDays.Has(time.Sunday) {
		t.Fatalf("unexpected weekend set %v", staff.WeekendDays.Names())
	}
	if w, ok := rs.StaffWindowFor(time.Monday); !ok || w != (MinuteRange{Start: 600, End: 1080}) {
		t.Fatalf("unexpected Monday window %+v %v", w, ok)
	}
	if _, ok := rs.StaffWindowFor(time.Sunday); !ok {
		t.Fatal("Sunday is not a weekend day here and has a window")
	}
	if _, ok := rs.StaffWindowFor(time.Wednesday); ok {
		t.Fatal("{0,0} window should mean not working")
	}
	if _, ok := rs.StaffWindowFor(time.Thursday); ok {
		t.Fatal("unreadable window should mean not working")
	}
	if staff.Lunch == nil || *staff.Lunch != (MinuteRange{Start: 720, End: 779}) {
		t.Fatalf("unexpected lunch %+v", staff.Lunch)
	}

	row[ColLunchStart], row[ColLunchEnd] = 0, 0
	rs, _ = BuildRuleSet(RuleRows{Staff: row}, tz)
	if rs.Staff().Lunch != nil {
		t.Fatal("{0,0} lunch should be ignored")
	}
}

func TestBuildRuleSetTimeOff(t *testing.T) {
	tz := denver(t)
	rows := RuleRows{TimeOff: []Row{
		{ColStaffID: "A", ColName: "trip", ColStartsOn: "2025-09-17", ColEndsOn: "2025-09-18"},
		{ColStaffID: "", ColName: "holiday", ColStartsOn: "12/25/2025, 12:00:00 AM", ColEndsOn: "12/25/2025, 12:00:00 AM"},
		{ColStaffID: "A", ColStartsOn: "2025-10-10", ColEndsOn: "2025-10-01"},
		{ColStaffID: "A", ColStartsOn: "soon", ColEndsOn: "2025-10-01"},
	}}
	rs, warnings := BuildRuleSet(rows, tz)

	if !rs.TimeOffBlocking("A", wednesday) {
		t.Fatal("expected start day blocked")
	}
	if rs.TimeOffBlocking("A", thursday) {
		t.Fatal("end day is exclusive")
	}
	if rs.TimeOffBlocking("B", wednesday) {
		t.Fatal("staff time off must not apply to other staff")
	}
	if !rs.TimeOffBlocking("B", "2025-12-25") || rs.TimeOffBlocking("B", "2025-12-26") {
		t.Fatal("same-day store-wide entry should block exactly that day")
	}
	if got := rs.Stats().TimeOff; got != 2 {
		t.Fatalf("expected 2 usable entries, got %d", got)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", warnings)
	}
}

func TestBuildRuleSetTimeBlocksAndLeaves(t *testing.T) {
	tz := denver(t)
	rows := RuleRows{
		TimeBlocks: []Row{
			{ColStaffID: "A", ColStartMinute: 600, ColEndMinute: 660, ColRecurring: true, ColRecurringDay: "Friday"},
			{ColStaffID: "", ColStartMinute: "13:00", ColEndMinute: "13:30", ColRecurring: false, ColBlockDate: "2025-09-17"},
			{ColStaffID: "A", ColStartMinute: 600, ColEndMinute: 660, ColRecurring: true},
			{ColStaffID: "A", ColStartMinute: 700, ColEndMinute: 600, ColRecurring: false, ColBlockDate: "2025-09-17"},
		},
		Leaves: []Row{
			{ColStaffID: "A", ColLeaveDate: "2025-09-18", ColLeaveType: "Full Day"},
			{ColStaffID: "A", ColLeaveDate: "2025-09-19", ColLeaveType: "Half Day", ColStartTime: "09:00", ColEndTime: "12:00"},
			{ColStaffID: "A", ColLeaveDate: "2025-09-19", ColLeaveType: "sabbatical"},
		},
	}
	rs, warnings := BuildRuleSet(rows, tz)

	if !rs.TimeBlockBlocking("A", 630, time.Friday, friday) || rs.TimeBlockBlocking("A", 630, time.Thursday, thursday) {
		t.Fatal("recurring block should match Friday only")
	}
	if !rs.TimeBlockBlocking("Z", 810, time.Wednesday, wednesday) || rs.TimeBlockBlocking("Z", 811, time.Wednesday, wednesday) {
		t.Fatal("one-time store-wide block window is inclusive")
	}
	if !rs.FullDayLeave("A", thursday) || rs.FullDayLeave("A", friday) {
		t.Fatal("unexpected full-day leave result")
	}
	if !rs.LeaveBlocking("A", friday, 720) || rs.LeaveBlocking("A", friday, 721) {
		t.Fatal("half-day window is inclusive")
	}
	if rs.LeaveBlocking("B", friday, 600) {
		t.Fatal("leave must not apply to other staff")
	}
	stats := rs.Stats()
	if stats.TimeBlocks != 2 || stats.Leaves != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %v", warnings)
	}
}
