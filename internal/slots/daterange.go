package slots

import (
	"strings"
	"time"
)

const (
	DefaultRangeDays = 30
	MaxRangeDays     = 92
)

// DateRange is the list of local days to resolve and the absolute bounds used
// for the provider query.
type DateRange struct {
	Days  []DayKey
	Start time.Time
	End   time.Time
}

func (r DateRange) First() DayKey { return r.Days[0] }

func (r DateRange) Last() DayKey { return r.Days[len(r.Days)-1] }

// BuildRange returns totalDays consecutive days starting at anchor. An empty
// anchor means today in tz. The anchor is a local calendar date; it is never
// read as UTC midnight.
func BuildRange(tz *Timezone, anchor string, totalDays int, now time.Time) (DateRange, error) {
	if totalDays <= 0 {
		totalDays = DefaultRangeDays
	}
	if totalDays > MaxRangeDays {
		return DateRange{}, invalidRequest("range of %d days exceeds %d", totalDays, MaxRangeDays)
	}

	first := tz.Today(now)
	if anchor = strings.TrimSpace(anchor); anchor != "" {
		d, err := ParseDayKey(anchor)
		if err != nil {
			return DateRange{}, invalidRequest("date must be YYYY-MM-DD: %v", err)
		}
		first = d
	}

	days := make([]DayKey, totalDays)
	for i := range days {
		days[i] = first.AddDays(i)
	}
	return DateRange{
		Days:  days,
		Start: tz.Midnight(days[0]),
		End:   tz.EndOfDay(days[len(days)-1]),
	}, nil
}
