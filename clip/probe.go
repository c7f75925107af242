package clip

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/openwave/clipper/storage"
	"github.com/openwave/clipper/telemetry"
)

// warmSegmentCaches stats every segment path concurrently to provoke a
// metadata refresh on networked mounts, where a freshly written segment can
// be listed in its directory before its content is visible to this process.
//
// Probe failures are swallowed: the point is to trigger the refresh, not to
// validate existence. A segment that is genuinely missing fails the transcode
// attempt itself, which is where the error is actionable.
func warmSegmentCaches(ctx context.Context, store storage.Storage, segments []string) {
	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "clip_probe"))
	var g errgroup.Group
	for _, seg := range segments {
		g.Go(func() error {
			if _, err := store.Stat(seg); err != nil {
				logger.Debug("segment probe failed", slog.String("path", seg), slog.Any("err", err))
			}
			return nil
		})
	}
	_ = g.Wait()
}
