// Package clip implements the media segment concatenation pipeline: it
// stitches recorded audio/video segments into a single downloadable clip by
// driving ffmpeg's concat demuxer, with cache-consistency probing for
// networked storage, bounded retries classified from engine diagnostics, a
// watchdog for hung subprocesses, and guaranteed cleanup of the per-request
// working directory.
package clip

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/openwave/clipper/config"
	"github.com/openwave/clipper/storage"
	"github.com/openwave/clipper/telemetry"
)

// TrimSpec selects a sub-range of the concatenated timeline to emit.
type TrimSpec struct {
	StartOffsetSeconds float64 `json:"start_offset_seconds"` // >= 0
	DurationSeconds    float64 `json:"duration_seconds"`     // > 0
}

func (t *TrimSpec) validate() error {
	if t == nil {
		return nil
	}
	if t.StartOffsetSeconds < 0 || t.DurationSeconds <= 0 {
		return fmt.Errorf("%w: start=%v duration=%v", ErrInvalidTrim, t.StartOffsetSeconds, t.DurationSeconds)
	}
	return nil
}

// durationProber reports container metadata durations (ffprobe in
// production, a stub in tests).
type durationProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Concatenator orchestrates the request lifecycle:
// prepare -> probe -> invoke-with-retry -> cleanup.
type Concatenator struct {
	store       storage.Storage
	engine      Engine
	durations   durationProber
	tmpRoot     string
	dataDir     string
	maxAttempts int
	retryDelay  time.Duration
}

// NewConcatenator wires the pipeline from service configuration with an
// ffmpeg engine and the given storage backend.
func NewConcatenator(cfg *config.Config, store storage.Storage) *Concatenator {
	engine := NewFFmpeg(cfg)
	return &Concatenator{
		store:       store,
		engine:      engine,
		durations:   engine,
		tmpRoot:     cfg.TmpDir,
		dataDir:     cfg.DataDir,
		maxAttempts: cfg.ClipMaxAttempts,
		retryDelay:  cfg.ClipRetryDelay,
	}
}

// Concatenate stitches segments, in exactly the given order, into a playable
// clip at outputPath. On failure the output file's state is undefined and
// callers must not read it. The ephemeral working directory is removed on
// every exit path; a cleanup failure is logged and never masks the primary
// result.
func (c *Concatenator) Concatenate(ctx context.Context, segments []string, outputPath string, trim *TrimSpec) error {
	if len(segments) == 0 {
		return ErrNoSegments
	}
	if err := trim.validate(); err != nil {
		return err
	}
	if !acquireClipSlot(ctx) {
		return ctx.Err()
	}
	defer releaseClipSlot()

	// Relative output paths land under the service's data root.
	if !filepath.IsAbs(outputPath) && c.dataDir != "" {
		outputPath = filepath.Join(c.dataDir, outputPath)
	}

	ctx, span := telemetry.StartSpan(ctx, "clipper/clip", "clip.concatenate",
		attribute.Int("segment_count", len(segments)),
		attribute.String("output", outputPath))
	defer span.End()

	logger := telemetry.LoggerWithCorr(ctx).With(
		slog.String("component", "clip_concat"),
		slog.String("output", outputPath))
	telemetry.ClipsStarted.Inc()
	start := time.Now()

	workDir := filepath.Join(c.tmpRoot, uuid.NewString())
	if err := c.store.EnsureDir(workDir); err != nil {
		telemetry.ClipsFailed.Inc()
		telemetry.RecordError(span, err)
		return fmt.Errorf("create working dir: %w", err)
	}
	defer c.removeWorkDir(logger, workDir)

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := c.store.EnsureDir(dir); err != nil {
			telemetry.ClipsFailed.Inc()
			telemetry.RecordError(span, err)
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	descriptorPath := filepath.Join(workDir, descriptorFileName)
	if err := c.store.WriteFile(descriptorPath, []byte(BuildConcatDescriptor(segments))); err != nil {
		telemetry.ClipsFailed.Inc()
		telemetry.RecordError(span, err)
		return fmt.Errorf("write concat descriptor: %w", err)
	}

	warmSegmentCaches(ctx, c.store, segments)

	totalSeconds := float64(EstimatedDuration(len(segments), DefaultSegmentSeconds))
	if trim != nil {
		totalSeconds = trim.DurationSeconds
	}
	req := ConcatRequest{
		DescriptorPath: descriptorPath,
		OutputPath:     outputPath,
		Trim:           trim,
		TotalSeconds:   totalSeconds,
	}

	policy := retryPolicy{
		maxAttempts: c.maxAttempts,
		delay:       c.retryDelay,
		beforeRetry: func(ctx context.Context) { warmSegmentCaches(ctx, c.store, segments) },
	}
	err := runWithRetry(ctx, policy, func(ctx context.Context, attempt int) error {
		return c.engine.Concat(ctx, req)
	})
	elapsed := time.Since(start)
	if err != nil {
		telemetry.ClipsFailed.Inc()
		telemetry.RecordError(span, err)
		logger.Error("concatenation failed",
			slog.Int("segment_count", len(segments)),
			slog.Duration("elapsed", elapsed),
			slog.Any("err", err))
		return err
	}
	telemetry.ClipsSucceeded.Inc()
	telemetry.ClipDuration.Observe(elapsed.Seconds())
	telemetry.SetSpanSuccess(span)
	logger.Info("concatenation complete",
		slog.Int("segment_count", len(segments)),
		slog.Duration("elapsed", elapsed))
	return nil
}

// ProbedDuration reports the container duration of a stored media file in
// seconds, 0 when the container carries no duration metadata. Probe failures
// are escalated, unlike the pipeline's internal cache probes.
func (c *Concatenator) ProbedDuration(ctx context.Context, path string) (float64, error) {
	d, err := c.durations.ProbeDuration(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("clip duration probe: %w", err)
	}
	return d, nil
}

func (c *Concatenator) removeWorkDir(logger *slog.Logger, dir string) {
	if err := c.store.RemoveAll(dir); err != nil {
		// Cleanup failure never overrides the primary result.
		logger.Warn("working dir cleanup failed", slog.String("dir", dir), slog.Any("err", err))
	}
}
