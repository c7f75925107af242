// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ClipsStarted   prometheus.Counter
	ClipsSucceeded prometheus.Counter
	ClipsFailed    prometheus.Counter
	ClipAttempts   prometheus.Counter
	ClipRetries    prometheus.Counter
	ClipTimeouts   prometheus.Counter

	// Histograms (seconds)
	ClipDuration prometheus.Observer

	// Gauges
	ActiveClipsGauge prometheus.Gauge
	QueueDepthGauge  prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ClipsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_concats_started_total", Help: "Number of clip concatenation requests started"})
		ClipsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_concats_succeeded_total", Help: "Number of clip concatenation requests succeeded"})
		ClipsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_concats_failed_total", Help: "Number of clip concatenation requests failed"})
		ClipAttempts = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_transcode_attempts_total", Help: "Number of ffmpeg invocations across all requests"})
		ClipRetries = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_transcode_retries_total", Help: "Number of retried ffmpeg invocations"})
		ClipTimeouts = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_transcode_timeouts_total", Help: "Number of ffmpeg invocations killed by the watchdog"})
		ClipDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "clip_concat_duration_seconds", Help: "End-to-end concatenation duration seconds", Buckets: prometheus.DefBuckets})
		ActiveClipsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "clip_active_concats", Help: "Concatenations currently holding a concurrency slot"})
		QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "clip_queue_depth", Help: "Current number of pending clip jobs"})
	})
}

// SetActiveClips records how many concatenations hold a slot right now.
func SetActiveClips(n int) {
	if ActiveClipsGauge != nil {
		ActiveClipsGauge.Set(float64(n))
	}
}

// SetQueueDepth records the current pending clip job count.
func SetQueueDepth(n int) {
	if QueueDepthGauge != nil {
		QueueDepthGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
