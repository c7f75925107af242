package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	// A second Init must not re-register collectors (promauto panics on
	// duplicate registration).
	Init()
	if ClipsStarted == nil || ClipDuration == nil || QueueDepthGauge == nil {
		t.Fatal("metrics not initialized")
	}
}

func TestGaugeHelpersNilSafe(t *testing.T) {
	Init()
	SetActiveClips(3)
	SetQueueDepth(7)
}

func TestTimeFunc(t *testing.T) {
	Init()
	d := TimeFunc(ClipDuration, func() { time.Sleep(5 * time.Millisecond) })
	if d < 5*time.Millisecond {
		t.Fatalf("TimeFunc duration = %v, want >= 5ms", d)
	}
	// nil observer is allowed
	if d := TimeFunc(nil, func() {}); d < 0 {
		t.Fatal("negative duration")
	}
}

func TestCorrelationHelpers(t *testing.T) {
	ctx := context.Background()
	if GetCorrelation(ctx) != "" {
		t.Fatal("expected empty correlation on fresh context")
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Fatalf("GetCorrelation = %q", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Fatal("expected logger")
	}
}
