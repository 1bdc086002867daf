package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/petrend/petrend/internal/model"
)

func testPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := testPolicy(2).Do(context.Background(), "fetch", func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := testPolicy(2).Do(context.Background(), "fetch", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &model.SourceFetchError{Source: model.SourceLive, StatusCode: 503, Err: errors.New("unavailable")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	wantErr := &model.SourceFetchError{Source: model.SourceLive, StatusCode: 500, Err: errors.New("boom")}
	err := testPolicy(2).Do(context.Background(), "fetch", func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected final error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoDoesNotRetryClientError(t *testing.T) {
	calls := 0
	err := testPolicy(3).Do(context.Background(), "fetch", func(ctx context.Context) error {
		calls++
		return &model.SourceFetchError{Source: model.SourceLive, StatusCode: 404, Err: errors.New("not found")}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call for 404, got %d", calls)
	}
}

func TestDoDoesNotRetryCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := testPolicy(3).Do(ctx, "fetch", func(ctx context.Context) error {
		calls++
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call after cancellation, got %d", calls)
	}
}

func TestBackoffHonorsRetryAfter(t *testing.T) {
	p := testPolicy(1)
	err := &model.SourceFetchError{Source: model.SourceLive, StatusCode: 429, RetryAfter: 42 * time.Millisecond}
	if got := p.backoffDelay(1, err); got != 42*time.Millisecond {
		t.Errorf("expected Retry-After to win, got %v", got)
	}
}
