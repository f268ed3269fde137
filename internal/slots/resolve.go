package slots

import (
	"slices"
	"time"

	"go.uber.org/zap"
)

// ResolvedDaySlots maps each day that has availability to its display times.
// Days without surviving slots are absent; key presence means availability.
type ResolvedDaySlots map[DayKey][]string

// ResolveInput is everything ResolveDays needs; it performs no I/O.
type ResolveInput struct {
	Timezone *Timezone
	Days     []DayKey
	// Raw is the provider's response keyed by its own day grouping, which is
	// ignored.
	Raw     map[string][]time.Time
	Rules   *RuleSet
	StaffID string
	Logger  *zap.Logger
}

// ResolveDays applies the availability layers to the provider's free instants
// for each requested day. Layers only remove candidates and run in a fixed
// order: store open, store hours, staff weekend, staff hours, lunch, time off,
// staff leave, time block.
func ResolveDays(in ResolveInput) ResolvedDaySlots {
	logger := in.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	buckets := in.Timezone.Bucket(in.Raw)
	out := make(ResolvedDaySlots)
	for _, day := range in.Days {
		instants := buckets[day]
		if len(instants) == 0 {
			continue
		}
		kept := resolveDay(in, day, instants, logger.With(zap.String("day", string(day))))
		if len(kept) == 0 {
			continue
		}
		slices.SortFunc(kept, func(a, b time.Time) int { return a.Compare(b) })
		formatted := make([]string, len(kept))
		for i, t := range kept {
			formatted[i] = in.Timezone.Display(t)
		}
		out[day] = formatted
	}
	return out
}

func resolveDay(in ResolveInput, day DayKey, instants []time.Time, log *zap.Logger) []time.Time {
	tz, rules, staffID := in.Timezone, in.Rules, in.StaffID
	weekday := day.Weekday()

	store, ok := rules.StoreHoursFor(weekday)
	if !ok || !store.IsOpen {
		log.Debug("store closed", zap.Stringer("weekday", weekday))
		return nil
	}

	kept := instants
	if store.Hours != nil {
		hours := *store.Hours
		kept = filter(kept, log, "store hours", func(t time.Time) bool {
			return hours.Contains(tz.MinutesOfDay(t))
		})
	}
	if staffID == "" {
		return kept
	}

	if staff := rules.Staff(); staff != nil {
		if staff.WeekendDays.Has(weekday) {
			log.Debug("staff weekend", zap.Stringer("weekday", weekday))
			return nil
		}
		window, ok := rules.StaffWindowFor(weekday)
		if !ok {
			log.Debug("staff not working", zap.Stringer("weekday", weekday))
			return nil
		}
		kept = filter(kept, log, "staff hours", func(t time.Time) bool {
			return window.Contains(tz.MinutesOfDay(t))
		})
		if staff.Lunch != nil {
			lunch := *staff.Lunch
			kept = filter(kept, log, "lunch", func(t time.Time) bool {
				return !lunch.Contains(tz.MinutesOfDay(t))
			})
		}
	}

	if rules.TimeOffBlocking(staffID, day) {
		log.Debug("time off")
		return nil
	}
	if rules.FullDayLeave(staffID, day) {
		log.Debug("full day leave")
		return nil
	}
	kept = filter(kept, log, "leave", func(t time.Time) bool {
		return !rules.LeaveBlocking(staffID, day, tz.MinutesOfDay(t))
	})
	kept = filter(kept, log, "time block", func(t time.Time) bool {
		return !rules.TimeBlockBlocking(staffID, tz.MinutesOfDay(t), weekday, day)
	})
	return kept
}

// filter returns a new slice; the input is never modified.
func filter(in []time.Time, log *zap.Logger, stage string, keep func(time.Time) bool) []time.Time {
	out := make([]time.Time, 0, len(in))
	for _, t := range in {
		if keep(t) {
			out = append(out, t)
		}
	}
	if len(out) != len(in) {
		log.Debug("filter", zap.String("stage", stage), zap.Int("before", len(in)), zap.Int("after", len(out)))
	}
	return out
}
