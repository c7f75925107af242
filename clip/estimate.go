package clip

// Defaults for the pure estimators. Recording egress writes fixed ten-second
// segments; 6000 kbps is the platform's standard capture bitrate.
const (
	DefaultSegmentSeconds = 10
	DefaultBitrateKbps    = 6000
)

// EstimatedDuration returns the expected clip length in seconds for a number
// of fixed-length segments.
func EstimatedDuration(segmentCount, perSegmentSeconds int) int {
	return segmentCount * perSegmentSeconds
}

// EstimatedFileSize returns the expected artifact size in bytes for a clip of
// the given duration at the given bitrate, rounded up to a whole byte.
func EstimatedFileSize(durationSeconds, bitrateKbps int) int64 {
	bits := int64(bitrateKbps) * 1000 * int64(durationSeconds)
	return (bits + 7) / 8
}
