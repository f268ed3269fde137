package slots

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProviderSource returns the calendar provider's free instants for a range.
// The map keys are the provider's own day grouping and are not trusted.
type ProviderSource interface {
	FreeInstants(ctx context.Context, calendarID, staffID string, start, end time.Time) (map[string][]time.Time, error)
}

// RuleRepository reads the raw availability rows. Staff-scoped reads return
// rows for that staff member plus store-wide rows (empty staff id).
type RuleRepository interface {
	StoreHours(ctx context.Context) ([]Row, error)
	// StaffHours returns nil, nil when no record exists.
	StaffHours(ctx context.Context, staffID string) (Row, error)
	TimeOff(ctx context.Context, staffID string) ([]Row, error)
	TimeBlocks(ctx context.Context, staffID string) ([]Row, error)
	StaffLeaves(ctx context.Context, staffID string) ([]Row, error)
}

type Request struct {
	CalendarID string
	// StaffID is optional; empty resolves store-level availability only.
	StaffID string
	// Anchor is an optional YYYY-MM-DD start date; empty means today.
	Anchor string
	// Days defaults to the resolver's configured range length.
	Days int
}

type Summary struct {
	Rules         RuleStats     `json:"rules"`
	RawInstants   int           `json:"rawInstants"`
	DaysWithSlots int           `json:"daysWithSlots"`
	Warnings      []RuleWarning `json:"warnings,omitempty"`
}

type Resolution struct {
	CalendarID string           `json:"calendarId"`
	StaffID    string           `json:"staffId,omitempty"`
	Timezone   string           `json:"timezone"`
	StartDate  DayKey           `json:"startDate"`
	EndDate    DayKey           `json:"endDate"`
	Slots      ResolvedDaySlots `json:"slots"`
	Summary    Summary          `json:"summary"`
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_.@-]{1,128}$`)

// Resolver fetches provider instants and rule rows, then runs ResolveDays.
// It holds no per-request state and is safe for concurrent use.
type Resolver struct {
	provider  ProviderSource
	rules     RuleRepository
	tz        *Timezone
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
	rangeDays int
}

type Option func(*Resolver)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func WithRangeDays(days int) Option {
	return func(r *Resolver) {
		if days > 0 {
			r.rangeDays = days
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(r *Resolver) { r.tracer = tracer }
}

func NewResolver(provider ProviderSource, rules RuleRepository, tz *Timezone, opts ...Option) *Resolver {
	r := &Resolver{
		provider:  provider,
		rules:     rules,
		tz:        tz,
		logger:    zap.NewNop(),
		tracer:    otel.Tracer("slots-service/internal/slots"),
		now:       time.Now,
		rangeDays: DefaultRangeDays,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Timezone() *Timezone { return r.tz }

// Today is the current day in the operating timezone.
func (r *Resolver) Today() DayKey { return r.tz.Today(r.now()) }

// RangeDays is the window length used when a request does not set Days.
func (r *Resolver) RangeDays() int { return r.rangeDays }

func (r *Resolver) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	ctx, span := r.tracer.Start(ctx, "slots.Resolve", trace.WithAttributes(
		attribute.String("calendar.id", req.CalendarID),
		attribute.String("staff.id", req.StaffID),
		attribute.String("anchor", req.Anchor),
	))
	defer span.End()

	res, err := r.resolve(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("days.with_slots", len(res.Slots)))
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, req Request) (*Resolution, error) {
	req.CalendarID = strings.TrimSpace(req.CalendarID)
	req.StaffID = strings.TrimSpace(req.StaffID)
	if req.CalendarID == "" {
		return nil, invalidRequest("calendar id is required")
	}
	if !identifierPattern.MatchString(req.CalendarID) {
		return nil, invalidRequest("malformed calendar id %q", req.CalendarID)
	}
	if req.StaffID != "" && !identifierPattern.MatchString(req.StaffID) {
		return nil, invalidRequest("malformed staff id %q", req.StaffID)
	}
	days := req.Days
	if days <= 0 {
		days = r.rangeDays
	}
	rng, err := BuildRange(r.tz, req.Anchor, days, r.now())
	if err != nil {
		return nil, err
	}

	raw, rows, err := r.fetch(ctx, req, rng)
	if err != nil {
		return nil, err
	}

	logger := r.logger.With(zap.String("calendar_id", req.CalendarID), zap.String("staff_id", req.StaffID))
	rules, warnings := BuildRuleSet(rows, r.tz)
	for _, w := range warnings {
		logger.Warn("rule row degraded",
			zap.String("table", w.Table),
			zap.Int("row", w.Row),
			zap.String("field", w.Field),
			zap.String("value", w.Value),
			zap.String("reason", w.Reason))
	}
	if req.StaffID != "" && rows.Staff == nil {
		logger.Warn("no staff hours found, staff hours not applied")
	}

	slots := ResolveDays(ResolveInput{
		Timezone: r.tz,
		Days:     rng.Days,
		Raw:      raw,
		Rules:    rules,
		StaffID:  req.StaffID,
		Logger:   logger,
	})

	rawCount := 0
	for _, v := range raw {
		rawCount += len(v)
	}
	logger.Info("slots resolved",
		zap.String("start", string(rng.First())),
		zap.Int("raw_instants", rawCount),
		zap.Int("days_with_slots", len(slots)))

	return &Resolution{
		CalendarID: req.CalendarID,
		StaffID:    req.StaffID,
		Timezone:   r.tz.Name(),
		StartDate:  rng.First(),
		EndDate:    rng.Last(),
		Slots:      slots,
		Summary: Summary{
			Rules:         rules.Stats(),
			RawInstants:   rawCount,
			DaysWithSlots: len(slots),
			Warnings:      warnings,
		},
	}, nil
}

// fetch issues the provider read and the rule reads concurrently. The first
// failure cancels the others.
func (r *Resolver) fetch(ctx context.Context, req Request, rng DateRange) (map[string][]time.Time, RuleRows, error) {
	var (
		raw  map[string][]time.Time
		rows RuleRows
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out, err := r.provider.FreeInstants(gctx, req.CalendarID, req.StaffID, rng.Start, rng.End)
		if err != nil {
			return classify(ctx, "fetch free instants", err)
		}
		raw = out
		return nil
	})
	g.Go(func() error {
		out, err := r.rules.StoreHours(gctx)
		if err != nil {
			return classify(ctx, "read store hours", err)
		}
		rows.StoreHours = out
		return nil
	})
	if req.StaffID != "" {
		g.Go(func() error {
			out, err := r.rules.StaffHours(gctx, req.StaffID)
			if err != nil {
				return classify(ctx, "read staff hours", err)
			}
			rows.Staff = out
			return nil
		})
		g.Go(func() error {
			out, err := r.rules.TimeOff(gctx, req.StaffID)
			if err != nil {
				return classify(ctx, "read time off", err)
			}
			rows.TimeOff = out
			return nil
		})
		g.Go(func() error {
			out, err := r.rules.TimeBlocks(gctx, req.StaffID)
			if err != nil {
				return classify(ctx, "read time blocks", err)
			}
			rows.TimeBlocks = out
			return nil
		})
		g.Go(func() error {
			out, err := r.rules.StaffLeaves(gctx, req.StaffID)
			if err != nil {
				return classify(ctx, "read staff leaves", err)
			}
			rows.Leaves = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, RuleRows{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, RuleRows{}, classify(ctx, "resolve", err)
	}
	return raw, rows, nil
}
