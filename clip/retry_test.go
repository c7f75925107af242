package clip

import (
	"context"
	"errors"
	"testing"
	"time"
)

func retryableErr(msg string) error {
	return &TranscodeError{Diagnostic: msg, Err: errors.New("exit status 1")}
}

func TestRunWithRetrySucceedsAfterRetryableFailures(t *testing.T) {
	calls := 0
	err := runWithRetry(context.Background(), retryPolicy{maxAttempts: 3, delay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		if calls <= 2 {
			return retryableErr("cannot open segment")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("runWithRetry = %v, want nil", err)
	}
	if calls != 3 {
		t.Fatalf("attempts = %d, want 3", calls)
	}
}

func TestRunWithRetryExhaustsAndReturnsLastError(t *testing.T) {
	calls := 0
	last := retryableErr("Impossible to open '/mnt/rec/seg.ts' (third)")
	err := runWithRetry(context.Background(), retryPolicy{maxAttempts: 3, delay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		if calls == 3 {
			return last
		}
		return retryableErr("Impossible to open '/mnt/rec/seg.ts'")
	})
	if calls != 3 {
		t.Fatalf("attempts = %d, want 3", calls)
	}
	if !errors.Is(err, last) {
		t.Fatalf("expected last error verbatim, got %v", err)
	}
}

func TestRunWithRetryFatalStopsImmediately(t *testing.T) {
	calls := 0
	err := runWithRetry(context.Background(), retryPolicy{maxAttempts: 3, delay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		return &TranscodeError{Diagnostic: "Unknown encoder", Err: errors.New("exit status 1")}
	})
	if calls != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry on fatal)", calls)
	}
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRunWithRetryTimeoutIsFatal(t *testing.T) {
	calls := 0
	err := runWithRetry(context.Background(), retryPolicy{maxAttempts: 3, delay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		return &TranscodeError{Err: ErrTranscodeTimeout}
	})
	if calls != 1 {
		t.Fatalf("attempts = %d, want 1 (timeouts never retry)", calls)
	}
	if !errors.Is(err, ErrTranscodeTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
}

func TestRunWithRetryShortCircuitsOnFirstSuccess(t *testing.T) {
	calls := 0
	err := runWithRetry(context.Background(), retryPolicy{maxAttempts: 3, delay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("calls = %d err = %v, want 1 and nil", calls, err)
	}
}

func TestRunWithRetryReprobesBeforeEachRetry(t *testing.T) {
	reprobes := 0
	calls := 0
	_ = runWithRetry(context.Background(), retryPolicy{
		maxAttempts: 3,
		delay:       time.Millisecond,
		beforeRetry: func(ctx context.Context) { reprobes++ },
	}, func(ctx context.Context, attempt int) error {
		calls++
		return retryableErr("cannot open segment")
	})
	if calls != 3 {
		t.Fatalf("attempts = %d, want 3", calls)
	}
	// One reprobe between each pair of attempts, none after the last.
	if reprobes != 2 {
		t.Fatalf("reprobes = %d, want 2", reprobes)
	}
}

func TestRunWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- runWithRetry(ctx, retryPolicy{maxAttempts: 3, delay: time.Minute}, func(ctx context.Context, attempt int) error {
			calls++
			return retryableErr("cannot open segment")
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("retry loop did not observe cancellation")
	}
	if calls != 1 {
		t.Fatalf("attempts = %d, want 1", calls)
	}
}
