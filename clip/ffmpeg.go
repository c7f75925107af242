package clip

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/openwave/clipper/config"
	"github.com/openwave/clipper/telemetry"
)

// Engine runs one transcode attempt against a prepared concat descriptor.
type Engine interface {
	Concat(ctx context.Context, req ConcatRequest) error
}

// ConcatRequest describes a single engine invocation.
type ConcatRequest struct {
	DescriptorPath string
	OutputPath     string
	Trim           *TrimSpec
	// TotalSeconds is the expected timeline length, used only to derive
	// progress percentages for the observability sink.
	TotalSeconds float64
}

// FFmpeg invokes the ffmpeg binary as a subprocess. A watchdog timer kills
// invocations that exceed Timeout.
type FFmpeg struct {
	Path      string
	ProbePath string
	Timeout   time.Duration
}

// NewFFmpeg builds an engine from service configuration.
func NewFFmpeg(cfg *config.Config) *FFmpeg {
	return &FFmpeg{Path: cfg.FFmpegPath, ProbePath: cfg.FFprobePath, Timeout: cfg.ClipTimeout}
}

// concatArgs builds the ffmpeg argument list. Input side: concat demuxer with
// absolute paths allowed. Output side: stream copy plus faststart so playback
// can begin before the download completes.
//
// The trim flags are output-side on purpose: -ss after -i trims post-demux
// (frame accurate), where the fast pre-demux variant would seek on the raw
// input and land on the nearest keyframe. -ss must precede -c copy and -t
// must follow it.
func concatArgs(req ConcatRequest) []string {
	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", req.DescriptorPath}
	if req.Trim != nil {
		args = append(args, "-ss", formatSeconds(req.Trim.StartOffsetSeconds))
	}
	args = append(args, "-c", "copy")
	if req.Trim != nil {
		args = append(args, "-t", formatSeconds(req.Trim.DurationSeconds))
	}
	args = append(args,
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-nostats",
		req.OutputPath,
	)
	return args
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Concat runs one ffmpeg invocation and settles exactly once with nil or a
// classified *TranscodeError carrying the engine's stderr diagnostic.
func (e *FFmpeg) Concat(ctx context.Context, req ConcatRequest) error {
	args := concatArgs(req)
	cmd := exec.CommandContext(ctx, e.Path, args...)

	// Locked buffer: on the watchdog path the diagnostic is read while the
	// killed process may still be flushing stderr.
	stderrBuf := &lockedBuffer{}
	cmd.Stderr = stderrBuf
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &TranscodeError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "clip_engine"))
	if err := cmd.Start(); err != nil {
		return &TranscodeError{Err: fmt.Errorf("start %s: %w", e.Path, err)}
	}
	logger.Info("transcode started",
		slog.String("output", req.OutputPath),
		slog.Duration("watchdog", e.watchdogCeiling()))
	telemetry.ClipAttempts.Inc()

	go reportProgress(stdout, req.TotalSeconds, logger)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	err = settle(done, e.watchdogCeiling(), cmd.Process.Kill, func() string {
		return diagnosticTail(stderrBuf.String())
	})
	switch {
	case err == nil:
		logger.Info("transcode complete", slog.String("output", req.OutputPath))
	case IsTimeout(err):
		telemetry.ClipTimeouts.Inc()
		logger.Error("transcode killed by watchdog", slog.Duration("ceiling", e.watchdogCeiling()))
	default:
		logger.Error("transcode failed", slog.Any("err", err))
	}
	return err
}

func (e *FFmpeg) watchdogCeiling() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return 10 * time.Minute
}

// settle waits for the first of {completion, watchdog expiry} and returns
// exactly one outcome. On expiry the process receives a single SIGKILL and
// the late completion is drained and discarded, so a stray event after
// settlement is a no-op.
func settle(done <-chan error, ceiling time.Duration, kill func() error, diagnostic func() string) error {
	watchdog := time.NewTimer(ceiling)
	defer watchdog.Stop()
	select {
	case err := <-done:
		if err != nil {
			return &TranscodeError{Diagnostic: diagnostic(), Err: err}
		}
		return nil
	case <-watchdog.C:
		_ = kill()
		go func() { <-done }() // reap the killed process
		return &TranscodeError{Diagnostic: diagnostic(), Err: ErrTranscodeTimeout}
	}
}

// IsTimeout reports whether err is a watchdog kill.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTranscodeTimeout)
}

// reportProgress parses ffmpeg's -progress key=value stream and emits
// percentage events. Informational only; parse failures are ignored.
func reportProgress(r io.Reader, totalSeconds float64, logger *slog.Logger) {
	sc := bufio.NewScanner(r)
	lastPercent := -1.0
	for sc.Scan() {
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "out_time_ms="); ok && totalSeconds > 0 {
			us, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				continue
			}
			// out_time_ms is microseconds despite the name
			percent := float64(us) / 1e6 / totalSeconds * 100
			if percent > 100 {
				percent = 100
			}
			if percent-lastPercent >= 1 {
				lastPercent = percent
				logger.Debug("transcode progress", slog.Float64("percent", percent))
			}
		}
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// diagnosticTail caps the stderr diagnostic carried on errors; ffmpeg can be
// extremely chatty and only the tail holds the failure reason.
func diagnosticTail(s string) string {
	const maxDiag = 4096
	s = strings.TrimSpace(s)
	if len(s) > maxDiag {
		s = s[len(s)-maxDiag:]
	}
	return s
}

// ProbeDuration queries the container metadata duration of a media file via
// ffprobe. A file without duration metadata yields 0. Unlike the pipeline's
// internal cache probes, a failure here is escalated: the result is ground
// truth reported to a caller.
func (e *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.ProbePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("probe duration of %s: %w", path, err)
	}
	s := strings.TrimSpace(string(out))
	if s == "" || s == "N/A" {
		return 0, nil
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("probe duration of %s: parse %q: %w", path, s, err)
	}
	return d, nil
}
