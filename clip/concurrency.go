package clip

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/openwave/clipper/telemetry"
)

// clipSemaphore bounds how many concatenation requests run simultaneously
// across the whole process. Each request owns its own working directory, so
// the limit exists purely to cap ffmpeg process and IO fan-out.
// Sized once from MAX_CONCURRENT_CLIPS (default: 2).
var (
	clipSemaphore     chan struct{}
	clipSemaphoreOnce sync.Once
)

func initClipSemaphore() {
	clipSemaphoreOnce.Do(func() {
		maxConcurrent := 2
		if s := os.Getenv("MAX_CONCURRENT_CLIPS"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				maxConcurrent = n
			}
		}
		clipSemaphore = make(chan struct{}, maxConcurrent)
		slog.Info("clip concurrency limit initialized", slog.Int("max_concurrent", maxConcurrent))
	})
}

// acquireClipSlot blocks until a concat slot is available or the context is
// canceled. Returns false on cancellation.
func acquireClipSlot(ctx context.Context) bool {
	initClipSemaphore()
	select {
	case clipSemaphore <- struct{}{}:
		telemetry.SetActiveClips(len(clipSemaphore))
		return true
	case <-ctx.Done():
		return false
	}
}

// releaseClipSlot frees a concat slot.
func releaseClipSlot() {
	initClipSemaphore()
	select {
	case <-clipSemaphore:
	default:
		// Mismatched acquire/release; should not happen.
		slog.Warn("clip slot release called without corresponding acquire")
	}
	telemetry.SetActiveClips(len(clipSemaphore))
}

// ActiveClips returns the number of concatenations currently holding a slot.
func ActiveClips() int {
	initClipSemaphore()
	return len(clipSemaphore)
}

// MaxConcurrentClips returns the configured slot count.
func MaxConcurrentClips() int {
	initClipSemaphore()
	return cap(clipSemaphore)
}
