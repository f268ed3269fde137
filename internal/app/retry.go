package app

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"slots-service/internal/slots"
)

// RetryingSource retries rate-limited provider calls with exponential
// backoff. Other errors are returned immediately.
type RetryingSource struct {
	next       slots.ProviderSource
	maxRetries uint64
	baseDelay  time.Duration
	logger     *zap.Logger
}

func NewRetryingSource(next slots.ProviderSource, maxRetries int, baseDelay time.Duration, logger *zap.Logger) *RetryingSource {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingSource{next: next, maxRetries: uint64(maxRetries), baseDelay: baseDelay, logger: logger}
}

func (s *RetryingSource) FreeInstants(ctx context.Context, calendarID, staffID string, start, end time.Time) (map[string][]time.Time, error) {
	var out map[string][]time.Time
	attempt := 0
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.baseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		res, err := s.next.FreeInstants(ctx, calendarID, staffID, start, end)
		if err != nil {
			if IsRateLimited(err) {
				s.logger.Warn("provider rate limited, backing off",
					zap.String("calendar_id", calendarID),
					zap.Int("attempt", attempt),
					zap.Error(err))
				return retry.RetryableError(err)
			}
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
