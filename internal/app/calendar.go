package app

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleSourceConfig controls how free/busy intervals become candidate
// instants.
type GoogleSourceConfig struct {
	Timezone string
	// Step is the spacing between candidate start times.
	Step time.Duration
	// Duration is the length a candidate must fit without touching a busy
	// interval.
	Duration time.Duration
}

// GoogleFreeBusySource derives free instants from a Google calendar's
// free/busy information. It serves a single calendar, so the staff id is not
// used for filtering.
type GoogleFreeBusySource struct {
	srv *calendar.Service
	cfg GoogleSourceConfig
}

func NewGoogleFreeBusySource(ctx context.Context, cfg GoogleSourceConfig, opts ...option.ClientOption) (*GoogleFreeBusySource, error) {
	if cfg.Step <= 0 || cfg.Duration <= 0 {
		return nil, fmt.Errorf("google source: step and duration must be positive")
	}
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &GoogleFreeBusySource{srv: srv, cfg: cfg}, nil
}

type busyPeriod struct {
	start, end time.Time
}

func (s *GoogleFreeBusySource) FreeInstants(ctx context.Context, calendarID, staffID string, start, end time.Time) (map[string][]time.Time, error) {
	resp, err := s.srv.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin:  start.Format(time.RFC3339),
		TimeMax:  end.Format(time.RFC3339),
		TimeZone: s.cfg.Timezone,
		Items:    []*calendar.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("query free/busy: %w", err)
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("free/busy response has no entry for calendar %q", calendarID)
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("free/busy for calendar %q: %s", calendarID, cal.Errors[0].Reason)
	}

	busy := make([]busyPeriod, 0, len(cal.Busy))
	for _, p := range cal.Busy {
		bs, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			return nil, fmt.Errorf("parse busy start %q: %w", p.Start, err)
		}
		be, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			return nil, fmt.Errorf("parse busy end %q: %w", p.End, err)
		}
		busy = append(busy, busyPeriod{start: bs, end: be})
	}

	return candidateInstants(start, end, s.cfg.Step, s.cfg.Duration, busy), nil
}

// candidateInstants steps through [from, to] and keeps every start whose
// [start, start+length) window fits before to and overlaps no busy period.
// Results are grouped by UTC date, mirroring how a provider would key them.
func candidateInstants(from, to time.Time, step, length time.Duration, busy []busyPeriod) map[string][]time.Time {
	out := make(map[string][]time.Time)
	for s := from; !s.Add(length).After(to); s = s.Add(step) {
		e := s.Add(length)
		if overlapsAny(s, e, busy) {
			continue
		}
		key := s.UTC().Format("2006-01-02")
		out[key] = append(out[key], s)
	}
	return out
}

func overlapsAny(start, end time.Time, busy []busyPeriod) bool {
	for _, b := range busy {
		if start.Before(b.end) && b.start.Before(end) {
			return true
		}
	}
	return false
}
