package clip

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/openwave/clipper/db"
	"github.com/openwave/clipper/telemetry"
)

// Job statuses.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// Job is one queued concatenation request. The artifact itself is not
// tracked here; persisting clip metadata is the downstream service's
// business. This table holds operational state only.
type Job struct {
	ID         string     `json:"id"`
	Segments   []string   `json:"segments"`
	OutputPath string     `json:"output_path"`
	Trim       *TrimSpec  `json:"trim,omitempty"`
	Status     string     `json:"status"`
	Attempts   int        `json:"attempts"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// EnqueueJob validates and inserts a pending clip job, returning its id.
func EnqueueJob(ctx context.Context, dbc *sql.DB, segments []string, outputPath string, trim *TrimSpec) (string, error) {
	if len(segments) == 0 {
		return "", ErrNoSegments
	}
	if outputPath == "" {
		return "", fmt.Errorf("output path is required")
	}
	if err := trim.validate(); err != nil {
		return "", err
	}
	segs, err := json.Marshal(segments)
	if err != nil {
		return "", fmt.Errorf("encode segments: %w", err)
	}
	id := uuid.NewString()
	var trimStart, trimDuration sql.NullFloat64
	if trim != nil {
		trimStart = sql.NullFloat64{Float64: trim.StartOffsetSeconds, Valid: true}
		trimDuration = sql.NullFloat64{Float64: trim.DurationSeconds, Valid: true}
	}
	_, err = dbc.ExecContext(ctx, `INSERT INTO clip_jobs (id, segments, output_path, trim_start, trim_duration, status, created_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', NOW())`, id, segs, outputPath, trimStart, trimDuration)
	if err != nil {
		return "", fmt.Errorf("enqueue clip job: %w", err)
	}
	return id, nil
}

// GetJob loads one job by id; returns sql.ErrNoRows when unknown.
func GetJob(ctx context.Context, dbc *sql.DB, id string) (*Job, error) {
	row := dbc.QueryRowContext(ctx, `SELECT id, segments, output_path, trim_start, trim_duration, status, attempts, COALESCE(error,''), created_at, updated_at
		FROM clip_jobs WHERE id=$1`, id)
	return scanJob(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		j         Job
		segs      []byte
		trimStart sql.NullFloat64
		trimDur   sql.NullFloat64
		updatedAt sql.NullTime
	)
	if err := row.Scan(&j.ID, &segs, &j.OutputPath, &trimStart, &trimDur, &j.Status, &j.Attempts, &j.Error, &j.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(segs, &j.Segments); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	if trimStart.Valid && trimDur.Valid {
		j.Trim = &TrimSpec{StartOffsetSeconds: trimStart.Float64, DurationSeconds: trimDur.Float64}
	}
	if updatedAt.Valid {
		j.UpdatedAt = &updatedAt.Time
	}
	return &j, nil
}

// StartClipJobQueue runs a loop processing queued clip jobs at an interval.
func StartClipJobQueue(ctx context.Context, dbc *sql.DB, c *Concatenator) {
	interval := 5 * time.Second
	if s := os.Getenv("CLIP_QUEUE_INTERVAL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			interval = d
		}
	}
	slog.Info("clip job queue starting", slog.Duration("interval", interval))
	// Kick an immediate run so we don't wait a full interval after boot.
	if err := processNextJob(ctx, dbc, c); err != nil {
		slog.Warn("process clip job", slog.Any("err", err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("clip job queue stopped")
			return
		case <-ticker.C:
			if err := processNextJob(ctx, dbc, c); err != nil {
				slog.Warn("process clip job", slog.Any("err", err))
			}
		}
	}
}

// processNextJob claims the oldest pending job and runs it to a terminal
// status. Retry of individual ffmpeg attempts happens inside Concatenate; a
// job reaching here again means a new request, not a retry.
func processNextJob(ctx context.Context, dbc *sql.DB, c *Concatenator) error {
	_ = db.SetKV(ctx, dbc, "job_clip_process_last", time.Now().UTC().Format(time.RFC3339))

	var queueDepth int
	_ = dbc.QueryRowContext(ctx, `SELECT COUNT(1) FROM clip_jobs WHERE status='pending'`).Scan(&queueDepth)
	telemetry.SetQueueDepth(queueDepth)

	row := dbc.QueryRowContext(ctx, `UPDATE clip_jobs SET status='running', updated_at=NOW()
		WHERE id = (SELECT id FROM clip_jobs WHERE status='pending' ORDER BY created_at ASC LIMIT 1 FOR UPDATE SKIP LOCKED)
		RETURNING id, segments, output_path, trim_start, trim_duration, status, attempts, COALESCE(error,''), created_at, updated_at`)
	job, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}

	ctx = telemetry.WithCorrelation(ctx, job.ID)
	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "clip_queue"), slog.String("job_id", job.ID))
	logger.Info("clip job claimed",
		slog.Int("segment_count", len(job.Segments)),
		slog.String("output", job.OutputPath),
		slog.Int("queue_depth", queueDepth))

	start := time.Now()
	if err := c.Concatenate(ctx, job.Segments, job.OutputPath, job.Trim); err != nil {
		logger.Error("clip job failed", slog.Any("err", err), slog.Duration("elapsed", time.Since(start)))
		_, _ = dbc.ExecContext(ctx, `UPDATE clip_jobs SET status='failed', error=$1, attempts=attempts+1, updated_at=NOW() WHERE id=$2`, err.Error(), job.ID)
		return nil
	}
	_, _ = dbc.ExecContext(ctx, `UPDATE clip_jobs SET status='done', error=NULL, attempts=attempts+1, updated_at=NOW() WHERE id=$1`, job.ID)
	logger.Info("clip job complete", slog.Duration("elapsed", time.Since(start)), slog.Int("queue_depth", queueDepth-1))
	telemetry.SetQueueDepth(queueDepth - 1)
	return nil
}
