package slots

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest means a required identifier or the anchor date is missing
	// or malformed. No collaborator is called.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUpstreamUnavailable means the provider or the rule repository failed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrTimeout means the caller's deadline elapsed before resolution finished.
	ErrTimeout = errors.New("timeout")
)

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// classify maps a collaborator failure onto one of the error kinds while
// keeping the cause reachable through errors.Is / errors.As.
func classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrUpstreamUnavailable), errors.Is(err, ErrTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return fmt.Errorf("%w: %s: %w", ErrTimeout, op, err)
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %s: %w", ErrTimeout, op, ctx.Err())
	default:
		return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, op, err)
	}
}
