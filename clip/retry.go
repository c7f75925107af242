package clip

import (
	"context"
	"log/slog"
	"time"

	"github.com/openwave/clipper/telemetry"
)

// AttemptFn runs one transcode attempt. attempt is 1-based.
type AttemptFn func(ctx context.Context, attempt int) error

// retryPolicy bounds and paces the attempt loop.
type retryPolicy struct {
	maxAttempts int
	delay       time.Duration
	// beforeRetry runs after the inter-attempt delay and before the next
	// attempt; the orchestrator uses it to re-warm segment caches.
	beforeRetry func(ctx context.Context)
}

// runWithRetry drives attempts strictly sequentially until one succeeds, a
// fatal error occurs, or maxAttempts retryable failures have accumulated, in
// which case the last error is returned verbatim. Timeouts classify as fatal
// and propagate on first occurrence.
func runWithRetry(ctx context.Context, policy retryPolicy, fn AttemptFn) error {
	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "clip_retry"))
	var lastErr error
	for attempt := 1; attempt <= policy.maxAttempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if ClassifyTranscodeError(err) != ErrorClassRetryable {
			return err
		}
		if attempt == policy.maxAttempts {
			break
		}
		telemetry.ClipRetries.Inc()
		logger.Warn("retrying transcode",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", policy.maxAttempts),
			slog.Duration("delay", policy.delay),
			slog.Any("err", err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.delay):
		}
		if policy.beforeRetry != nil {
			policy.beforeRetry(ctx)
		}
	}
	return lastErr
}
