package retry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/petrend/petrend/internal/model"
)

// Policy retries transient failures with exponential backoff and jitter.
// MaxRetries is the number of additional attempts after the first failure;
// BaseDelay is the delay before the first retry, doubled on each subsequent
// one.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Logger     *slog.Logger
}

// Do runs fn, retrying transient errors per the policy. The last error is
// returned when all attempts fail or when the error is not retryable.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil || !isRetryable(err) {
		return err
	}

	lastErr := err
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		delay := p.backoffDelay(attempt, lastErr)

		p.Logger.Warn("retrying after transient error",
			"op", op,
			"attempt", attempt,
			"max_retries", p.MaxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		err = fn(ctx)
		if err == nil || !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error carries a Retry-After duration (HTTP 429), that takes
// precedence.
func (p Policy) backoffDelay(attempt int, err error) time.Duration {
	var fetchErr *model.SourceFetchError
	if errors.As(err, &fetchErr) && fetchErr.RetryAfter > 0 {
		return fetchErr.RetryAfter
	}

	// Exponential: BaseDelay * 2^(attempt-1)
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	// Apply ±30% jitter
	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return delay
}

// isRetryable returns true if the error represents a transient failure worth
// retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation - never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var fetchErr *model.SourceFetchError
	if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
		// 429 Too Many Requests - retryable.
		if fetchErr.StatusCode == 429 {
			return true
		}
		// 5xx - retryable.
		if fetchErr.StatusCode >= 500 {
			return true
		}
		// 4xx (not 429) - not retryable.
		return false
	}

	// Non-HTTP errors (network, DNS, etc.) - retryable.
	return true
}
